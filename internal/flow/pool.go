package flow

import "sync"

// ImagePool recycles float planes of one geometry. Pyramid construction
// during tracking otherwise allocates a full frame per level per frame.
type ImagePool struct {
	pool sync.Pool
	w, h int
}

func NewImagePool(w, h int) *ImagePool {
	return &ImagePool{
		w: w,
		h: h,
		pool: sync.Pool{
			New: func() interface{} {
				return NewImage(w, h)
			},
		},
	}
}

func (p *ImagePool) Get() *Image {
	return p.pool.Get().(*Image)
}

func (p *ImagePool) Put(im *Image) {
	if im.W != p.w || im.H != p.h {
		return
	}
	for i := range im.Pix {
		im.Pix[i] = 0
	}
	p.pool.Put(im)
}
