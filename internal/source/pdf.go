package source

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/panel2video/internal/errs"
)

// renderPDF rasterizes one page of a PDF comic, ref is "<path>#<page>".
func (r *Resolver) renderPDF(ref string) (*image.RGBA, error) {
	path, pageStr, ok := strings.Cut(ref, "#")
	page := 1
	if ok {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 1 {
			return nil, errs.Resolution(errs.ReasonNotFound, "pdf:"+ref, fmt.Errorf("invalid page %q", pageStr))
		}
		page = n
	}

	if _, err := os.Stat(path); err != nil {
		return nil, errs.Resolution(errs.ReasonNotFound, "pdf:"+ref, err)
	}

	// Каждый вызов открывает свой документ: fitz.Document нельзя делить между воркерами
	doc, err := fitz.New(path)
	if err != nil {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, "pdf:"+ref, err)
	}
	defer doc.Close()

	if page > doc.NumPage() {
		return nil, errs.Resolution(errs.ReasonNotFound, "pdf:"+ref, fmt.Errorf("document has %d pages", doc.NumPage()))
	}

	r.logger.Printf("[>] Рендер страницы %d/%d из %s (%d DPI)", page, doc.NumPage(), path, r.dpi)
	img, err := doc.ImageDPI(page-1, float64(r.dpi))
	if err != nil {
		return nil, errs.Resolution(errs.ReasonDecodeFailed, "pdf:"+ref, err)
	}
	return toRGBA(img), nil
}
