package source

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/ivlev/panel2video/internal/errs"
)

func decode(r io.Reader, op string) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, short(op), err)
	}
	return toRGBA(img), nil
}

// toRGBA returns a zero-origin RGBA copy unless img already is one.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == bounds.Dx()*4 {
		return rgba
	}
	rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// decodeDataURL accepts only data:<mime>;base64,<payload>.
func decodeDataURL(ref string) (*image.RGBA, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, short(ref), fmt.Errorf("data URL without payload"))
	}
	params := strings.Split(header, ";")
	if !strings.HasPrefix(params[0], "image/") {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, short(ref), fmt.Errorf("media type %q is not an image", params[0]))
	}
	if params[len(params)-1] != "base64" {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, short(ref), fmt.Errorf("data URL must be tagged ;base64"))
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, short(ref), fmt.Errorf("base64: %w", err))
	}
	return decode(bytes.NewReader(data), ref)
}
