package network

import "github.com/ChizhovVadim/halfkp/internal/ml"

var (
	hiddenActivation ml.IActivationFn = &ml.ClippedReLuActivation{}
	outputActivation ml.IActivationFn = &ml.IdentityActivation{}
)

// Evaluate runs a Half-KP network on the active features of both perspectives.
// Out-of-range features are ignored.
func (n *Network) Evaluate(white, black []int32) float64 {
	var w0 = &n.Weights[0]
	var hidden = w0.Rows
	var concat = make([]float64, 2*hidden)
	for side, features := range [][]int32{white, black} {
		var acc = concat[side*hidden : (side+1)*hidden]
		copy(acc, n.Biases[0].Data)
		for _, f := range features {
			if f < 0 || int(f) >= w0.Cols {
				continue
			}
			for i, v := range w0.Column(int(f)) {
				acc[i] += v
			}
		}
		for i := range acc {
			acc[i] = hiddenActivation.Sigma(acc[i])
		}
	}
	var w1 = &n.Weights[1]
	var out = n.Biases[1].Data[0]
	for j, x := range concat {
		out += w1.Get(0, j) * x
	}
	return outputActivation.Sigma(out)
}
