package domain

import "fmt"

// ImageBatch is the canonical in-memory pixel representation: normalized
// float32 values in channel-last [N, H, W, C] layout.
type ImageBatch struct {
	Data []float32
	N    int
	H    int
	W    int
	C    int
}

// At returns the channel value at batch index n, row y, column x.
func (b *ImageBatch) At(n, y, x, c int) float32 {
	return b.Data[((n*b.H+y)*b.W+x)*b.C+c]
}

// Append concatenates another batch along the batch dimension. Spatial and
// channel dimensions must match.
func (b *ImageBatch) Append(other *ImageBatch) error {
	if other == nil || other.N == 0 {
		return nil
	}
	if b.N == 0 {
		*b = *other
		return nil
	}
	if b.H != other.H || b.W != other.W || b.C != other.C {
		return fmt.Errorf("batch shape mismatch: [%dx%dx%d] vs [%dx%dx%d]",
			b.H, b.W, b.C, other.H, other.W, other.C)
	}
	b.Data = append(b.Data, other.Data...)
	b.N += other.N
	return nil
}
