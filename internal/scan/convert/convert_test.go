package convert

import "testing"

func TestToImageFastPath(t *testing.T) {
	// 2x2 luma, 1x1 chroma, tightly packed (pixelStride=1, rowStride=width).
	y := []byte{10, 20, 30, 40}
	u := []byte{128}
	v := []byte{200}

	f := Frame{
		Width:  2,
		Height: 2,
		Y:      Plane{Data: y, RowStride: 2, PixelStride: 1},
		U:      Plane{Data: u, RowStride: 1, PixelStride: 1},
		V:      Plane{Data: v, RowStride: 1, PixelStride: 1},
	}

	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	if img.Y[0] != 10 || img.Y[3] != 40 {
		t.Fatalf("unexpected Y plane: %v", img.Y)
	}
	if img.Cb[0] != 128 || img.Cr[0] != 200 {
		t.Fatalf("unexpected chroma: Cb=%v Cr=%v", img.Cb, img.Cr)
	}
}

func TestToImagePaddedRows(t *testing.T) {
	// rowStride (3) > width (2): must skip the padding byte per row.
	y := []byte{10, 20, 0, 30, 40, 0}
	f := Frame{
		Width:  2,
		Height: 2,
		Y:      Plane{Data: y, RowStride: 3, PixelStride: 1},
		U:      Plane{Data: []byte{128}, RowStride: 1, PixelStride: 1},
		V:      Plane{Data: []byte{200}, RowStride: 1, PixelStride: 1},
	}

	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	want := []byte{10, 20, 30, 40}
	for i, w := range want {
		if img.Y[i] != w {
			t.Fatalf("Y[%d] = %d, want %d", i, img.Y[i], w)
		}
	}
}

func TestToImageNV21Deinterleave(t *testing.T) {
	y := []byte{1, 2, 3, 4}
	vu := []byte{200, 128} // V then U per NV21
	f := FromNV21(2, 2, y, 2, vu, 2)

	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	if img.Cr[0] != 200 {
		t.Fatalf("Cr[0] = %d, want 200", img.Cr[0])
	}
	if img.Cb[0] != 128 {
		t.Fatalf("Cb[0] = %d, want 128", img.Cb[0])
	}
}

func TestToImageInvalid(t *testing.T) {
	if _, err := ToImage(Frame{Width: 0, Height: 2}); err != ErrFrameBufferInvalid {
		t.Fatalf("expected ErrFrameBufferInvalid for zero width, got %v", err)
	}
	if _, err := ToImage(Frame{Width: 2, Height: 2}); err != ErrFrameBufferInvalid {
		t.Fatalf("expected ErrFrameBufferInvalid for nil planes, got %v", err)
	}
}
