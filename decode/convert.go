package decode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/asticode/go-astiav"
	"github.com/fanap-infra/log"
)

// DefaultJPEGQuality trades size for fidelity at interactive frame rates.
const DefaultJPEGQuality = 80

// converter caches a software scale context keyed by the decoded picture's
// geometry and rebuilds it only when that geometry changes.
type converter struct {
	ssc    *astiav.SoftwareScaleContext
	dst    *astiav.Frame
	valid  bool
	width  int
	height int
	srcFmt astiav.PixelFormat
}

func newConverter() *converter {
	return &converter{}
}

// geometryChanged reports whether a picture with the given geometry requires
// a converter rebuild. True for the first picture; false for repeated
// identical dimensions.
func (c *converter) geometryChanged(w, h int, pf astiav.PixelFormat) bool {
	return !c.valid || w != c.width || h != c.height || pf != c.srcFmt
}

func (c *converter) ensure(src *astiav.Frame) error {
	w, h, pf := src.Width(), src.Height(), src.PixelFormat()
	if !c.geometryChanged(w, h, pf) {
		return nil
	}
	c.release()

	ssc, err := astiav.CreateSoftwareScaleContext(
		w, h, pf,
		w, h, astiav.PixelFormatRgba,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("decode: create scale context %dx%d %s: %w", w, h, pf, err)
	}
	dst := astiav.AllocFrame()
	dst.SetWidth(w)
	dst.SetHeight(h)
	dst.SetPixelFormat(astiav.PixelFormatRgba)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("decode: alloc rgba buffer: %w", err)
	}

	c.ssc = ssc
	c.dst = dst
	c.valid = true
	c.width, c.height, c.srcFmt = w, h, pf
	metricReconfigures.Inc()
	log.Infov("Video Size", "width", w, "height", h)
	return nil
}

// ToJPEG converts one decoded picture into an RGBA image and JPEG-encodes
// it.
func (c *converter) ToJPEG(src *astiav.Frame, quality int) ([]byte, error) {
	if err := c.ensure(src); err != nil {
		return nil, err
	}
	if err := c.ssc.ScaleFrame(src, c.dst); err != nil {
		return nil, fmt.Errorf("decode: scale frame: %w", err)
	}

	// Copy the scaled plane out with byte alignment 1: rows land packed at
	// width*4 regardless of the frame's own linesize.
	n, err := c.dst.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("decode: image buffer size: %w", err)
	}
	plane := make([]byte, n)
	if _, err := c.dst.ImageCopyToBuffer(plane, 1); err != nil {
		return nil, fmt.Errorf("decode: copy rgba plane: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	copyRows(img.Pix, img.Stride, plane, c.width*4, c.width*4, c.height)
	return encodeJPEG(img, quality)
}

func (c *converter) release() {
	if c.dst != nil {
		c.dst.Free()
		c.dst = nil
	}
	if c.ssc != nil {
		c.ssc.Free()
		c.ssc = nil
	}
	c.valid = false
}

// copyRows copies h rows of rowBytes each, translating between source and
// destination strides. A bulk copy is wrong whenever the strides differ.
func copyRows(dst []byte, dstStride int, src []byte, srcStride, rowBytes, h int) {
	for y := 0; y < h; y++ {
		copy(dst[y*dstStride:y*dstStride+rowBytes], src[y*srcStride:y*srcStride+rowBytes])
	}
}

func encodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("decode: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
