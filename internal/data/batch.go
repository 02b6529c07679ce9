package data

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Batches yields fixed-order mini-batches of aligned row windows across all views.
// The order never changes between scans, so repeated epochs and validation passes
// see identical batch compositions.
type Batches struct {
	views []*mat.Dense
	size  int
}

// NewBatches creates a restartable batch sequence over the given row-aligned views.
func NewBatches(size int, views ...*mat.Dense) *Batches {
	return &Batches{
		views: views,
		size:  size,
	}
}

// Size returns the configured batch size.
func (b *Batches) Size() int {
	return b.size
}

// Len returns the number of batches of one full scan.
func (b *Batches) Len() int {
	rows, _ := b.views[0].Dims()
	n := rows / b.size
	if rows%b.size > 0 {
		n++
	}
	return n
}

// Scan walks the batch sequence from the start, invoking fn with one aligned
// slice per view. An error from fn aborts the scan and propagates.
func (b *Batches) Scan(fn func(batch []mat.Matrix) error) error {
	rows, _ := b.views[0].Dims()
	for start := 0; start < rows; start += b.size {
		end := start + b.size
		if end > rows {
			end = rows
		}
		batch := make([]mat.Matrix, len(b.views))
		for i, v := range b.views {
			_, c := v.Dims()
			batch[i] = v.Slice(start, end, 0, c)
		}
		if err := fn(batch); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}
