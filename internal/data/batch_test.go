package data

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestBatches_Scan(t *testing.T) {
	a := mat.NewDense(10, 2, nil)
	b := mat.NewDense(10, 3, nil)
	for i := 0; i < 10; i++ {
		a.Set(i, 0, float64(i))
		b.Set(i, 0, float64(10+i))
	}

	batches := NewBatches(4, a, b)
	assert.Equal(t, 3, batches.Len())

	sizes := make([]int, 0)
	firsts := make([]float64, 0)
	err := batches.Scan(func(batch []mat.Matrix) error {
		assert.Equal(t, 2, len(batch))
		ra, _ := batch[0].Dims()
		rb, _ := batch[1].Dims()
		assert.Equal(t, ra, rb)
		sizes = append(sizes, ra)
		firsts = append(firsts, batch[0].At(0, 0))
		return nil
	})
	assert.NoError(t, err)

	// fixed order with a trailing partial batch
	assert.Equal(t, []int{4, 4, 2}, sizes)
	assert.Equal(t, []float64{0, 4, 8}, firsts)
}

func TestBatches_ScanIsRestartable(t *testing.T) {
	a := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	b := mat.NewDense(6, 1, []float64{6, 5, 4, 3, 2, 1})

	batches := NewBatches(2, a, b)

	collect := func() []float64 {
		out := make([]float64, 0)
		_ = batches.Scan(func(batch []mat.Matrix) error {
			out = append(out, batch[0].At(0, 0))
			return nil
		})
		return out
	}

	// repeated scans see identical batch composition
	assert.Equal(t, collect(), collect())
}

func TestBatches_ScanAbortsOnError(t *testing.T) {
	a := mat.NewDense(6, 1, nil)
	b := mat.NewDense(6, 1, nil)

	calls := 0
	err := NewBatches(2, a, b).Scan(func(batch []mat.Matrix) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 2, calls)
}
