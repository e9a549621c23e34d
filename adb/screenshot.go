package adb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"time"
)

// Android pixel formats emitted by screencap's raw header.
const (
	pixelFormatRGBA8888 = 1
	pixelFormatRGB565   = 4
)

const screenshotTimeout = 5 * time.Second

// RawImage is an uncompressed framebuffer snapshot: packed color samples,
// bytes per pixel derived from the bit depth.
type RawImage struct {
	Width  int
	Height int
	BPP    int
	Pix    []byte
}

// Screenshot captures the current screen with screencap in raw mode.
func (b *Bridge) Screenshot() (*RawImage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), screenshotTimeout)
	defer cancel()
	out, err := b.command(ctx, "exec-out", "screencap").Output()
	if err != nil {
		return nil, fmt.Errorf("adb: screencap: %w", err)
	}
	return ParseRawImage(out)
}

// ParseRawImage decodes screencap's raw output: width, height and pixel
// format as little-endian uint32, then the packed pixel data. Android P and
// later insert a colorspace word between header and pixels; both layouts are
// accepted.
func ParseRawImage(b []byte) (*RawImage, error) {
	if len(b) < 12 {
		return nil, errors.New("adb: short screencap output")
	}
	w := int(binary.LittleEndian.Uint32(b[0:4]))
	h := int(binary.LittleEndian.Uint32(b[4:8]))
	format := binary.LittleEndian.Uint32(b[8:12])

	var bpp int
	switch format {
	case pixelFormatRGBA8888:
		bpp = 32
	case pixelFormatRGB565:
		bpp = 16
	default:
		return nil, fmt.Errorf("adb: unsupported pixel format %d", format)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("adb: invalid screenshot size %dx%d", w, h)
	}

	pix := b[12:]
	need := w * h * (bpp / 8)
	if len(pix) == need+4 {
		pix = pix[4:] // colorspace word
	}
	if len(pix) < need {
		return nil, fmt.Errorf("adb: screencap pixel data truncated: want %d got %d", need, len(pix))
	}

	return &RawImage{Width: w, Height: h, BPP: bpp, Pix: pix[:need]}, nil
}

// ToImage expands the packed samples into an RGBA image.
func (r *RawImage) ToImage() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	switch r.BPP {
	case 32:
		rowBytes := r.Width * 4
		for y := 0; y < r.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+rowBytes], r.Pix[y*rowBytes:(y+1)*rowBytes])
		}
	case 16:
		i := 0
		for y := 0; y < r.Height; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < r.Width; x++ {
				v := uint16(r.Pix[i]) | uint16(r.Pix[i+1])<<8
				i += 2
				// RGB565 to 8-bit per channel, high bits replicated
				red := uint8(v >> 11)
				green := uint8(v >> 5 & 0x3f)
				blue := uint8(v & 0x1f)
				row[x*4] = red<<3 | red>>2
				row[x*4+1] = green<<2 | green>>4
				row[x*4+2] = blue<<3 | blue>>2
				row[x*4+3] = 0xff
			}
		}
	default:
		return nil, fmt.Errorf("adb: unsupported bit depth %d", r.BPP)
	}
	return img, nil
}
