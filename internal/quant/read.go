package quant

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// QuantizedNetwork is an exported network read back for inspection.
type QuantizedNetwork struct {
	Shape          Shape
	FeatureWeights []int16
	FeatureBias    []int16
	OutputWeights  []int16
	OutputBias     int16
}

func Read(r io.Reader, shape Shape) (*QuantizedNetwork, error) {
	var br = bufio.NewReaderSize(r, 1<<16)
	var net = &QuantizedNetwork{
		Shape:          shape,
		FeatureWeights: make([]int16, shape.Hidden*shape.Inputs),
		FeatureBias:    make([]int16, shape.Hidden),
		OutputWeights:  make([]int16, 2*shape.Hidden),
	}
	for _, data := range [][]int16{net.FeatureWeights, net.FeatureBias, net.OutputWeights} {
		if err := binary.Read(br, binary.LittleEndian, data); err != nil {
			return nil, fmt.Errorf("read quantized network: %w", err)
		}
	}
	if err := binary.Read(br, binary.LittleEndian, &net.OutputBias); err != nil {
		return nil, fmt.Errorf("read quantized network: %w", err)
	}
	var extra, _ = br.Peek(1)
	if len(extra) != 0 {
		return nil, fmt.Errorf("read quantized network: trailing data")
	}
	return net, nil
}

func ReadFile(path string, shape Shape) (*QuantizedNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, shape)
}

// FeatureWeight returns the weight from input to hidden neuron.
func (q *QuantizedNetwork) FeatureWeight(hidden, input int) int16 {
	return q.FeatureWeights[hidden*q.Shape.Inputs+input]
}

// Evaluate runs the fixed-point network the way an int16 inference engine does
// and rescales the result to the float network's units.
func (q *QuantizedNetwork) Evaluate(white, black []int32) float64 {
	var hidden = q.Shape.Hidden
	var out = int64(q.OutputBias) * QA
	for side, features := range [][]int32{white, black} {
		var acc = make([]int32, hidden)
		for i := range acc {
			acc[i] = int32(q.FeatureBias[i])
		}
		for _, f := range features {
			if f < 0 || int(f) >= q.Shape.Inputs {
				continue
			}
			for i := range acc {
				acc[i] += int32(q.FeatureWeights[i*q.Shape.Inputs+int(f)])
			}
		}
		var weights = q.OutputWeights[side*hidden : (side+1)*hidden]
		for i, a := range acc {
			out += int64(weights[i]) * int64(saturate(a, 0, QA))
		}
	}
	return float64(out) / (QA * QA)
}
