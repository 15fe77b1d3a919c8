package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ChizhovVadim/halfkp/internal/ml"
	"github.com/ChizhovVadim/halfkp/internal/quant"
)

var (
	ErrBadMagic           = errors.New("network: magic word does not match")
	ErrUnsupportedVersion = errors.New("network: binary format is not supported")
)

type Topology struct {
	Inputs        uint32
	Outputs       uint32
	HiddenNeurons []uint32
	// Perspectives is the number of times the first hidden layer is evaluated
	// and concatenated before the next layer. Half-KP uses 2.
	Perspectives uint32
}

func NewTopology(inputs, outputs uint32, hiddenNeurons []uint32) Topology {
	return Topology{
		Inputs:        inputs,
		Outputs:       outputs,
		HiddenNeurons: hiddenNeurons,
		Perspectives:  1,
	}
}

// HalfKPTopology is a shared feature transformer evaluated for both sides, followed by one output neuron.
func HalfKPTopology(inputs, hidden uint32) Topology {
	var t = NewTopology(inputs, 1, []uint32{hidden})
	t.Perspectives = 2
	return t
}

func (t *Topology) LayerSize() int {
	return len(t.HiddenNeurons) + 1
}

func (t *Topology) layerShape(layer int) (outputs, inputs int) {
	if layer == len(t.HiddenNeurons) {
		outputs = int(t.Outputs)
	} else {
		outputs = int(t.HiddenNeurons[layer])
	}
	switch layer {
	case 0:
		inputs = int(t.Inputs)
	case 1:
		inputs = int(t.HiddenNeurons[0] * t.Perspectives)
	default:
		inputs = int(t.HiddenNeurons[layer-1])
	}
	return outputs, inputs
}

// Network is a float checkpoint handed over by the trainer.
// Weights[i] is outputs x inputs, stored column-major.
type Network struct {
	Id       uint32
	Topology Topology
	Weights  []ml.Matrix
	Biases   []ml.Matrix
}

func New(id uint32, topology Topology) *Network {
	var n = &Network{
		Id:       id,
		Topology: topology,
		Weights:  make([]ml.Matrix, topology.LayerSize()),
		Biases:   make([]ml.Matrix, topology.LayerSize()),
	}
	for i := range n.Weights {
		var outputs, inputs = topology.layerShape(i)
		n.Weights[i] = ml.NewMatrix(outputs, inputs)
		n.Biases[i] = ml.NewMatrix(outputs, 1)
	}
	return n
}

// Binary format of a checkpoint:
//   - all data is little-endian, all matrices are column-major
//   - magic: 'B', 'Z', major, minor (2.0 for plain networks, 3.0 adds perspectives)
//   - uint32 network id
//   - uint32 inputs, uint32 outputs, uint32 hidden layer count, uint32 per hidden layer
//   - version 3 only: uint32 perspectives
//   - per layer: float32 weights, then float32 biases
func (n *Network) Write(w io.Writer) error {
	var bw = bufio.NewWriter(w)
	var version byte = 2
	if n.Topology.Perspectives > 1 {
		version = 3
	}
	var buf = []byte{66, 90, version, 0}
	buf = binary.LittleEndian.AppendUint32(buf, n.Id)
	buf = binary.LittleEndian.AppendUint32(buf, n.Topology.Inputs)
	buf = binary.LittleEndian.AppendUint32(buf, n.Topology.Outputs)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(n.Topology.HiddenNeurons)))
	for _, neurons := range n.Topology.HiddenNeurons {
		buf = binary.LittleEndian.AppendUint32(buf, neurons)
	}
	if version == 3 {
		buf = binary.LittleEndian.AppendUint32(buf, n.Topology.Perspectives)
	}
	var _, err = bw.Write(buf)
	if err != nil {
		return err
	}

	for i := 0; i < n.Topology.LayerSize(); i++ {
		err = writeSlice(bw, n.Weights[i].Data)
		if err != nil {
			return err
		}
		err = writeSlice(bw, n.Biases[i].Data)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (n *Network) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = n.Write(f)
	if err != nil {
		return err
	}
	return f.Close()
}

func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load network %v: %w", path, err)
	}
	return n, nil
}

func Read(r io.Reader) (*Network, error) {
	var br = bufio.NewReader(r)
	var buf = make([]byte, 4)
	var readUint32 = func() (uint32, error) {
		var _, err = io.ReadFull(br, buf)
		return binary.LittleEndian.Uint32(buf), err
	}

	var _, err = io.ReadFull(br, buf)
	if err != nil {
		return nil, err
	}
	if buf[0] != 66 || buf[1] != 90 {
		return nil, ErrBadMagic
	}
	var version = buf[2]
	if (version != 2 && version != 3) || buf[3] != 0 {
		return nil, ErrUnsupportedVersion
	}

	id, err := readUint32()
	if err != nil {
		return nil, err
	}
	var header [3]uint32
	for i := range header {
		header[i], err = readUint32()
		if err != nil {
			return nil, err
		}
	}
	var layers = header[2]
	if layers > 16 {
		return nil, fmt.Errorf("network: too many layers %v", layers)
	}
	var neurons = make([]uint32, layers)
	for i := range neurons {
		neurons[i], err = readUint32()
		if err != nil {
			return nil, err
		}
	}
	var topology = NewTopology(header[0], header[1], neurons)
	if version == 3 {
		topology.Perspectives, err = readUint32()
		if err != nil {
			return nil, err
		}
		if topology.Perspectives == 0 || layers == 0 {
			return nil, fmt.Errorf("network: bad perspectives %v", topology.Perspectives)
		}
	}

	var n = New(id, topology)
	for i := 0; i < topology.LayerSize(); i++ {
		err = readSlice(br, n.Weights[i].Data)
		if err != nil {
			return nil, err
		}
		err = readSlice(br, n.Biases[i].Data)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func writeSlice(w io.Writer, data []float64) error {
	var buf = make([]byte, 4)
	for j := range data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(data[j])))
		var _, err = w.Write(buf)
		if err != nil {
			return err
		}
	}
	return nil
}

func readSlice(r io.Reader, data []float64) error {
	var buf = make([]byte, 4)
	for j := range data {
		var _, err = io.ReadFull(r, buf)
		if err != nil {
			return err
		}
		data[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}
	return nil
}

// Linear returns layer i as a row-major float32 layer for the exporter.
func (n *Network) Linear(layer int) quant.Linear {
	var w = &n.Weights[layer]
	var b = &n.Biases[layer]
	var bias = make([]float32, len(b.Data))
	for i, v := range b.Data {
		bias[i] = float32(v)
	}
	return quant.Linear{
		Out:     w.Rows,
		In:      w.Cols,
		Weights: w.RowMajor(),
		Bias:    bias,
	}
}

// Shape returns the exporter shape of a Half-KP network.
func (n *Network) Shape() (quant.Shape, error) {
	var t = &n.Topology
	if t.Perspectives != 2 || len(t.HiddenNeurons) != 1 || t.Outputs != 1 {
		return quant.Shape{}, fmt.Errorf("network: not a Half-KP topology %+v", *t)
	}
	return quant.Shape{Inputs: int(t.Inputs), Hidden: int(t.HiddenNeurons[0])}, nil
}
