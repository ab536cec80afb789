// Package convert turns a planar YUV-420 camera frame (with explicit
// row/pixel strides, as delivered by the camera frame source) into a
// packed sensor-orientation image.YCbCr. Rotation is the caller's concern;
// this package is lossless with respect to the sampled grid.
package convert

import (
	"errors"
	"image"
)

// ErrFrameBufferInvalid is returned when a plane is nil or the declared
// dimensions are not positive.
var ErrFrameBufferInvalid = errors.New("convert: invalid frame buffer")

// Plane is one YUV plane with its stride layout. RowStride is the number of
// bytes between the start of consecutive rows; PixelStride is the number of
// bytes between consecutive samples within a row (1 for fully planar, 2 for
// semi-planar NV12/NV21 chroma).
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// Frame is a planar or semi-planar YUV-420 frame as delivered by the camera
// frame source, before rotation.
type Frame struct {
	Width, Height int
	Y             Plane
	U             Plane
	V             Plane
}

func (p Plane) valid() bool {
	return p.Data != nil && p.PixelStride > 0 && p.RowStride > 0
}

// ToImage decodes f into a packed *image.YCbCr in sensor orientation. It
// honors row padding, taking the fast path (straight block copy) whenever
// pixelStride==1 and rowStride==width, and otherwise copies sample by
// sample. NV21 semi-planar chroma (U and V backed by the same interleaved
// plane with pixelStride==2) is de-interleaved into the separate Cb/Cr
// planes image.YCbCr expects, reading V before U per NV21 ordering.
func ToImage(f Frame) (*image.YCbCr, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, ErrFrameBufferInvalid
	}
	if !f.Y.valid() || !f.U.valid() || !f.V.valid() {
		return nil, ErrFrameBufferInvalid
	}

	cw := (f.Width + 1) / 2
	ch := (f.Height + 1) / 2

	img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio420)

	if err := copyPlane(img.Y, img.YStride, f.Width, f.Height, f.Y); err != nil {
		return nil, err
	}
	if err := copyPlane(img.Cb, img.CStride, cw, ch, f.U); err != nil {
		return nil, err
	}
	if err := copyPlane(img.Cr, img.CStride, cw, ch, f.V); err != nil {
		return nil, err
	}

	return img, nil
}

func copyPlane(dst []byte, dstStride, width, height int, src Plane) error {
	if src.PixelStride == 1 && src.RowStride == width {
		n := width * height
		if len(src.Data) < n {
			return ErrFrameBufferInvalid
		}
		copy(dst, src.Data[:n])
		return nil
	}

	for row := 0; row < height; row++ {
		srcRowStart := row * src.RowStride
		dstRowStart := row * dstStride
		for col := 0; col < width; col++ {
			srcIdx := srcRowStart + col*src.PixelStride
			if srcIdx >= len(src.Data) {
				return ErrFrameBufferInvalid
			}
			dst[dstRowStart+col] = src.Data[srcIdx]
		}
	}
	return nil
}

// FromNV21 builds a Frame from a single interleaved VU chroma plane (NV21
// semi-planar layout), the common layout Android cameras deliver. U and V
// alias the same backing array with pixelStride 2 and an offset of 1 and 0
// respectively, so the general ToImage path de-interleaves them without a
// separate code path.
func FromNV21(width, height int, y []byte, yRowStride int, vu []byte, vuRowStride int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Y:      Plane{Data: y, RowStride: yRowStride, PixelStride: 1},
		V:      Plane{Data: vu, RowStride: vuRowStride, PixelStride: 2},
		U:      Plane{Data: vu[1:], RowStride: vuRowStride, PixelStride: 2},
	}
}
