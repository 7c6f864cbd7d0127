package ocr

import (
	"image"
	"strconv"
	"strings"

	"github.com/dsoprea/go-exif/v3"
)

// exifOrientation returns the EXIF Orientation tag (1..8), or 1 when absent or unreadable.
func exifOrientation(data []byte) (o int) {
	defer func() {
		// go-exif panics on some malformed IFDs.
		if r := recover(); r != nil {
			o = 1
		}
	}()

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 1
	}
	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return 1
	}
	for _, t := range tags {
		if t.TagName != "Orientation" {
			continue
		}
		switch v := t.Value.(type) {
		case []uint16:
			if len(v) > 0 {
				return validOrientation(int(v[0]))
			}
		default:
			f := strings.Trim(strings.TrimSpace(t.Formatted), "[]")
			if n, err := strconv.Atoi(f); err == nil {
				return validOrientation(n)
			}
		}
	}
	return 1
}

func validOrientation(n int) int {
	if n < 1 || n > 8 {
		return 1
	}
	return n
}

// orient applies an EXIF orientation to a grayscale image, returning an upright copy.
func orient(src *image.Gray, o int) *image.Gray {
	if o <= 1 || o > 8 {
		return src
	}
	// Pix is addressed relative to Bounds().Min.
	if src.Bounds().Min != (image.Point{}) {
		src = cloneGray(src)
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}
	dst := image.NewGray(image.Rect(0, 0, dw, dh))

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			sx, sy := x, y
			switch o {
			case 2: // mirror horizontal
				sx, sy = w-1-x, y
			case 3: // rotate 180
				sx, sy = w-1-x, h-1-y
			case 4: // mirror vertical
				sx, sy = x, h-1-y
			case 5: // transpose
				sx, sy = y, x
			case 6: // rotate 90 CW
				sx, sy = y, h-1-x
			case 7: // transverse
				sx, sy = w-1-y, h-1-x
			case 8: // rotate 270 CW
				sx, sy = w-1-y, x
			}
			dst.Pix[y*dst.Stride+x] = src.Pix[sy*src.Stride+sx]
		}
	}
	return dst
}

func cloneGray(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return dst
}
