// Package watermark stamps outgoing photos with a channel logo in the top
// right corner.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// Marker composites a scaled overlay onto images. A nil Marker passes
// images through unchanged, so a missing watermark file is not an error.
type Marker struct {
	overlay image.Image
	scale   float64
}

// Load reads the overlay PNG. Returns nil (no watermarking) when the file
// does not exist.
func Load(path string, scale float64) (*Marker, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open watermark: %w", err)
	}
	defer f.Close()

	overlay, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode watermark: %w", err)
	}
	if scale <= 0 || scale > 1 {
		scale = 0.45
	}
	return &Marker{overlay: overlay, scale: scale}, nil
}

// Apply decodes imgData, pastes the overlay scaled to scale×image-width
// into the top right corner and re-encodes as PNG. Undecodable images come
// back unchanged rather than failing the post.
func (m *Marker) Apply(imgData []byte) ([]byte, error) {
	if m == nil {
		return imgData, nil
	}

	base, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return imgData, nil
	}

	bounds := base.Bounds()
	ratio := float64(bounds.Dx()) * m.scale / float64(m.overlay.Bounds().Dx())
	w := int(float64(m.overlay.Bounds().Dx()) * ratio)
	h := int(float64(m.overlay.Bounds().Dy()) * ratio)
	if w < 1 || h < 1 {
		return imgData, nil
	}

	out := image.NewRGBA(bounds)
	xdraw.Draw(out, bounds, base, bounds.Min, xdraw.Src)

	target := image.Rect(bounds.Max.X-w, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+h)
	xdraw.BiLinear.Scale(out, target, m.overlay, m.overlay.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode watermarked image: %w", err)
	}
	return buf.Bytes(), nil
}
