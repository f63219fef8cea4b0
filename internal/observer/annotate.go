package observer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

const (
	// OutlineWidth is the stroke width of the annotation box in image pixels.
	OutlineWidth = 3

	jpegQuality = 92
)

// OutlineColor is the annotation stroke color.
var OutlineColor = color.RGBA{R: 255, A: 255}

// Annotate draws a red box around rect onto raw. rect is in the coordinates
// of a page whose visible size was vp; it is scaled by the ratio of image
// size to viewport size, or left unscaled when vp is unknown. The result is encoded in raw's format. All failures
// wrap api.ErrAnnotationUnavailable.
func Annotate(raw api.Image, rect api.Rect, vp api.Viewport) (api.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return api.Image{}, fmt.Errorf("%w: decode: %v", api.ErrAnnotationUnavailable, err)
	}

	b := src.Bounds()
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = api.Viewport{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, src, b.Min, draw.Src)

	scaleX := float64(b.Dx()) / vp.Width
	scaleY := float64(b.Dy()) / vp.Height
	strokeRect(canvas,
		float64(b.Min.X)+rect.X*scaleX,
		float64(b.Min.Y)+rect.Y*scaleY,
		rect.Width*scaleX,
		rect.Height*scaleY,
	)

	var buf bytes.Buffer
	var out api.Image
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality})
		out.MIMEType = api.MIMEJPEG
	default:
		err = png.Encode(&buf, canvas)
		out.MIMEType = api.MIMEPNG
	}
	if err != nil {
		return api.Image{}, fmt.Errorf("%w: encode: %v", api.ErrAnnotationUnavailable, err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

// strokeRect outlines (x, y, w, h) with a stroke of OutlineWidth centered on
// the rectangle's edges. Bands outside dst are clipped by draw.Draw.
func strokeRect(dst draw.Image, x, y, w, h float64) {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	half := OutlineWidth / 2.0
	px := func(v float64) int { return int(math.Round(v)) }

	outer := image.Rect(px(x-half), px(y-half), px(x+w+half), px(y+h+half))
	inner := image.Rect(px(x+half), px(y+half), px(x+w-half), px(y+h-half))

	paint := image.NewUniform(OutlineColor)
	if inner.Empty() {
		draw.Draw(dst, outer, paint, image.Point{}, draw.Src)
		return
	}
	bands := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y), // top
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y), // bottom
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y), // left
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y), // right
	}
	for _, r := range bands {
		draw.Draw(dst, r, paint, image.Point{}, draw.Src)
	}
}
