package ml

type IActivationFn interface {
	Sigma(x float64) float64
}

// ClippedReLuActivation clamps to [0, 1], the range of an int16 accumulator after scaling by QA.
type ClippedReLuActivation struct{}

func (*ClippedReLuActivation) Sigma(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

type IdentityActivation struct{}

func (*IdentityActivation) Sigma(x float64) float64 { return x }
