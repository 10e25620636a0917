// Package raster provides the frame buffer handed from backend modules to
// an image codec. Buffers are plain memory: allocated on demand by a
// backend, freed by Go's collector, never owned by a session.
package raster

import "fmt"

// Buffer is a rectangular pixel buffer over one contiguous allocation.
// Rows are stored top to bottom with no padding between them.
type Buffer struct {
	width  int
	height int
	bpp    int // bytes per pixel
	data   []byte
}

// New allocates a buffer of the given dimensions.
func New(width, height, bytesPerPixel int) (*Buffer, error) {
	if width <= 0 || height <= 0 || bytesPerPixel <= 0 {
		return nil, fmt.Errorf("raster: invalid dimensions %dx%dx%d", width, height, bytesPerPixel)
	}
	return &Buffer{
		width:  width,
		height: height,
		bpp:    bytesPerPixel,
		data:   make([]byte, width*height*bytesPerPixel),
	}, nil
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// BytesPerPixel returns the pixel stride in bytes.
func (b *Buffer) BytesPerPixel() int { return b.bpp }

// Stride returns the row stride in bytes.
func (b *Buffer) Stride() int { return b.width * b.bpp }

// Bytes returns the whole allocation, rows concatenated top to bottom.
// The slice aliases the buffer; writes are visible to later readers.
func (b *Buffer) Bytes() []byte { return b.data }

// Row returns the y-th row as a view into the allocation.
func (b *Buffer) Row(y int) ([]byte, error) {
	if y < 0 || y >= b.height {
		return nil, fmt.Errorf("raster: row %d out of range [0,%d)", y, b.height)
	}
	stride := b.Stride()
	return b.data[y*stride : (y+1)*stride : (y+1)*stride], nil
}

// Rows returns views of every row, top to bottom. The slices alias the
// allocation; image codecs can consume them without copying.
func (b *Buffer) Rows() [][]byte {
	stride := b.Stride()
	rows := make([][]byte, b.height)
	for y := range rows {
		rows[y] = b.data[y*stride : (y+1)*stride : (y+1)*stride]
	}
	return rows
}

// Fill sets every pixel to the given value. The value must be exactly one
// pixel wide.
func (b *Buffer) Fill(pixel []byte) error {
	if len(pixel) != b.bpp {
		return fmt.Errorf("raster: fill value is %d bytes, want %d", len(pixel), b.bpp)
	}
	for i := 0; i < len(b.data); i += b.bpp {
		copy(b.data[i:i+b.bpp], pixel)
	}
	return nil
}
