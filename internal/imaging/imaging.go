// Package imaging converts between encoded image bytes and the normalized
// float32 channel-last batches the host expects.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/aretw0/graft/pkg/domain"
)

// Decode converts one encoded image into a single-entry RGB batch with
// channel values normalized to [0, 1].
func Decode(data []byte) (*domain.ImageBatch, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	batch := &domain.ImageBatch{
		Data: make([]float32, 0, h*w*3),
		N:    1, H: h, W: w, C: 3,
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			batch.Data = append(batch.Data,
				float32(r>>8)/255.0,
				float32(g>>8)/255.0,
				float32(b>>8)/255.0,
			)
		}
	}
	return batch, nil
}

// DecodeBatch decodes each asset and concatenates them along the batch
// dimension in order. Returns nil when assets is empty.
func DecodeBatch(assets [][]byte) (*domain.ImageBatch, error) {
	if len(assets) == 0 {
		return nil, nil
	}
	out := &domain.ImageBatch{}
	for i, data := range assets {
		b, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
		if err := out.Append(b); err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
	}
	return out, nil
}

// EncodePNG renders batch entry n back into PNG bytes, used by the CLI to
// persist fetched results.
func EncodePNG(b *domain.ImageBatch, n int) ([]byte, error) {
	if n < 0 || n >= b.N {
		return nil, fmt.Errorf("batch index %d out of range [0,%d)", n, b.N)
	}
	img := image.NewRGBA(image.Rect(0, 0, b.W, b.H))
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			img.Set(x, y, color.RGBA{
				R: clamp8(b.At(n, y, x, 0)),
				G: clamp8(b.At(n, y, x, 1)),
				B: clamp8(b.At(n, y, x, 2)),
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp8(v float32) uint8 {
	s := v * 255.0
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s + 0.5)
}
