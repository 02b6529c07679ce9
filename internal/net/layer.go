package net

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// layer is one fully connected layer with an optional tanh activation.
// Forward caches the batch input and output for the following backward pass.
type layer struct {
	in, out int
	w       *mat.Dense
	b       []float64
	tanh    bool

	x mat.Matrix
	h *mat.Dense
}

func newLayer(rng *rand.Rand, in, out int, tanh bool) *layer {
	scale := math.Sqrt(1 / float64(in))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * scale
	}
	return &layer{
		in:   in,
		out:  out,
		w:    mat.NewDense(in, out, data),
		b:    make([]float64, out),
		tanh: tanh,
	}
}

func (l *layer) forward(x mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	h := mat.NewDense(n, l.out, nil)
	h.Mul(x, l.w)
	for i := 0; i < n; i++ {
		for j := 0; j < l.out; j++ {
			v := h.At(i, j) + l.b[j]
			if l.tanh {
				v = math.Tanh(v)
			}
			h.Set(i, j, v)
		}
	}
	l.x = x
	l.h = h
	return h
}

// backward takes the loss gradient w.r.t. the layer output, applies one SGD step
// and returns the gradient w.r.t. the layer input.
// It must follow a forward call on the same batch.
func (l *layer) backward(dh *mat.Dense, rate float64) *mat.Dense {
	n, _ := dh.Dims()

	dpre := dh
	if l.tanh {
		dpre = mat.NewDense(n, l.out, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < l.out; j++ {
				h := l.h.At(i, j)
				dpre.Set(i, j, dh.At(i, j)*(1-h*h))
			}
		}
	}

	var dw mat.Dense
	dw.Mul(l.x.T(), dpre)

	var dx mat.Dense
	dx.Mul(dpre, l.w.T())

	dw.Scale(rate, &dw)
	l.w.Sub(l.w, &dw)
	for j := 0; j < l.out; j++ {
		db := 0.0
		for i := 0; i < n; i++ {
			db += dpre.At(i, j)
		}
		l.b[j] -= rate * db
	}
	return &dx
}

func (l *layer) parameters() int {
	return l.in*l.out + l.out
}

// mlp is a stack of tanh hidden layers with a linear output layer.
type mlp struct {
	layers []*layer
}

func newMLP(rng *rand.Rand, in int, hidden []int, out int) *mlp {
	layers := make([]*layer, 0, len(hidden)+1)
	prev := in
	for _, h := range hidden {
		layers = append(layers, newLayer(rng, prev, h, true))
		prev = h
	}
	layers = append(layers, newLayer(rng, prev, out, false))
	return &mlp{layers: layers}
}

func (m *mlp) forward(x mat.Matrix) *mat.Dense {
	h := x
	for _, l := range m.layers {
		h = l.forward(h)
	}
	return h.(*mat.Dense)
}

// backward propagates the output gradient through all layers,
// stepping each one, and returns the gradient w.r.t. the input batch.
func (m *mlp) backward(dz *mat.Dense, rate float64) *mat.Dense {
	d := dz
	for i := len(m.layers) - 1; i >= 0; i-- {
		d = m.layers[i].backward(d, rate)
	}
	return d
}

func (m *mlp) parameters() int {
	count := 0
	for _, l := range m.layers {
		count += l.parameters()
	}
	return count
}

func reverse(ss []int) []int {
	out := make([]int, len(ss))
	for i, s := range ss {
		out[len(ss)-1-i] = s
	}
	return out
}
