package flow

import (
	"github.com/facerhythm/facerhythm/internal/video"
)

// Image is a float32 grayscale plane. Values stay in [0, 255].
type Image struct {
	W, H int
	Pix  []float32
}

func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]float32, w*h)}
}

// FromFrame converts a raw video frame into a float plane.
func FromFrame(f *video.Frame) *Image {
	im := NewImage(f.Width, f.Height)
	for i, v := range f.Pix {
		im.Pix[i] = float32(v)
	}
	return im
}

// at returns the clamped pixel value; coordinates outside the plane take
// the nearest edge value, which keeps window sums well defined near
// borders.
func (im *Image) at(y, x int) float32 {
	if y < 0 {
		y = 0
	} else if y >= im.H {
		y = im.H - 1
	}
	if x < 0 {
		x = 0
	} else if x >= im.W {
		x = im.W - 1
	}
	return im.Pix[y*im.W+x]
}

// Sample bilinearly interpolates at a sub-pixel position.
func (im *Image) Sample(y, x float64) float64 {
	iy, ix := int(y), int(x)
	if y < 0 {
		iy = 0
		y = 0
	}
	if x < 0 {
		ix = 0
		x = 0
	}
	fy, fx := y-float64(iy), x-float64(ix)

	v00 := float64(im.at(iy, ix))
	v01 := float64(im.at(iy, ix+1))
	v10 := float64(im.at(iy+1, ix))
	v11 := float64(im.at(iy+1, ix+1))

	return v00*(1-fy)*(1-fx) + v01*(1-fy)*fx + v10*fy*(1-fx) + v11*fy*fx
}

// gradAt returns Scharr spatial gradients at a sub-pixel position. The
// cross-axis smoothing (3, 10, 3)/32 makes the derivative estimate far
// less noise-sensitive than a bare central difference.
func (im *Image) gradAt(y, x float64) (gy, gx float64) {
	for i, w := range [3]float64{3, 10, 3} {
		d := float64(i - 1)
		gx += w * (im.Sample(y+d, x+1) - im.Sample(y+d, x-1))
		gy += w * (im.Sample(y+1, x+d) - im.Sample(y-1, x+d))
	}
	return gy / 32, gx / 32
}

// downsample halves an image with a 3x3 binomial smoothing kernel, the
// usual anti-alias step before decimation.
func downsample(im *Image) *Image {
	w, h := im.W/2, im.H/2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sy, sx := 2*y, 2*x
			sum := 4*float32(im.at(sy, sx)) +
				2*(im.at(sy-1, sx)+im.at(sy+1, sx)+im.at(sy, sx-1)+im.at(sy, sx+1)) +
				im.at(sy-1, sx-1) + im.at(sy-1, sx+1) + im.at(sy+1, sx-1) + im.at(sy+1, sx+1)
			out.Pix[y*w+x] = sum / 16
		}
	}
	return out
}

// Pyramid holds the image at successively halved resolutions. Levels[0]
// is full resolution.
type Pyramid struct {
	Levels []*Image
}

// NewPyramid builds an n-level pyramid. Levels are capped so the coarsest
// level stays at least twice the window size on each edge.
func NewPyramid(im *Image, levels, windowSize int) *Pyramid {
	if levels < 1 {
		levels = 1
	}
	p := &Pyramid{Levels: make([]*Image, 0, levels)}
	p.Levels = append(p.Levels, im)
	for l := 1; l < levels; l++ {
		prev := p.Levels[l-1]
		if prev.W/2 < 2*windowSize || prev.H/2 < 2*windowSize {
			break
		}
		p.Levels = append(p.Levels, downsample(prev))
	}
	return p
}
