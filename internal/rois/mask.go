package rois

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// LoadMaskImage reads a precomputed mask from an image file. Pixels at or
// above half luminance count as inside the region.
func LoadMaskImage(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode mask image %s: %w", path, err)
	}

	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// 16-bit channels; half of white is 0x8000 per channel.
			if (r+g+bl)/3 >= 0x8000 {
				m.set(y-b.Min.Y, x-b.Min.X)
			}
		}
	}
	if m.Count() == 0 {
		return nil, fmt.Errorf("mask image %s has no set pixels", path)
	}
	return m, nil
}
