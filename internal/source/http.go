package source

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/ivlev/panel2video/internal/errs"
)

// maxImageBytes bounds a single remote download.
const maxImageBytes = 64 << 20

func (r *Resolver) fetchHTTP(ctx context.Context, url string) (*image.RGBA, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Resolution(errs.ReasonUnreachable, short(url), err)
	}

	// http.Client follows redirects on its own (up to 10)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errs.Resolution(errs.ReasonUnreachable, short(url), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, errs.Resolution(errs.ReasonNotFound, short(url), fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		r.logger.Printf("[!] %s ответил %s", short(url), resp.Status)
		return nil, errs.Resolution(errs.ReasonUnreachable, short(url), fmt.Errorf("status %d", resp.StatusCode))
	}

	return decode(io.LimitReader(resp.Body, maxImageBytes), url)
}
