package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"
)

// saveCover decodes embedded cover art and writes it as a JPEG. Sources
// with an alpha channel are flattened onto white first, since JPEG has no
// transparency.
func saveCover(data []byte, path string) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode cover art: %w", err)
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		img = flatten(img)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cover file %s: %w", path, err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, nil); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to encode cover %s: %w", path, err)
	}
	return out.Close()
}

func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}
