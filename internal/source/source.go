// Package source resolves a panel's image_reference into a decoded raster.
//
// Supported reference forms are tagged explicitly; the resolver never guesses
// whether a payload is base64 or raw bytes:
//
//	http://… https://…            remote fetch, redirects followed
//	data:<mime>;base64,<payload>  inline image
//	cache:<id>                    file in the cache directory
//	/api/assets/cache/images/<id> legacy cache URL, same as cache:<id>
//	s3://bucket/key               object storage
//	pdf:<path>#<page>             page of a PDF document (1-based)
//	file:<path> or /abs/path      local file
//
// No retries happen here and nothing is written to disk.
package source

import (
	"context"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/panel2video/internal/errs"
)

const legacyCachePrefix = "/api/assets/cache/images/"

// Resolver turns image references into RGBA rasters. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	cacheDir string
	dpi      int
	client   *http.Client
	s3       ObjectGetter
	logger   *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithS3 enables s3:// references.
func WithS3(g ObjectGetter) Option {
	return func(r *Resolver) { r.s3 = g }
}

// WithDPI sets the rasterization density for pdf: references.
func WithDPI(dpi int) Option {
	return func(r *Resolver) { r.dpi = dpi }
}

// WithLogger sets the logger; nil keeps log.Default().
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver reading cache: references from cacheDir.
func NewResolver(cacheDir string, opts ...Option) *Resolver {
	r := &Resolver{
		cacheDir: cacheDir,
		dpi:      150,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches and decodes ref. Failures are *errs.Error of kind
// resolution with reason unreachable, decode_failed or not_found.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*image.RGBA, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	case strings.HasPrefix(ref, "cache:"):
		return r.readCache(strings.TrimPrefix(ref, "cache:"))
	case strings.HasPrefix(ref, legacyCachePrefix):
		return r.readCache(strings.TrimPrefix(ref, legacyCachePrefix))
	case strings.HasPrefix(ref, "s3://"):
		return r.fetchS3(ctx, ref)
	case strings.HasPrefix(ref, "pdf:"):
		return r.renderPDF(strings.TrimPrefix(ref, "pdf:"))
	case strings.HasPrefix(ref, "file://"):
		return readFile(strings.TrimPrefix(ref, "file://"))
	case strings.HasPrefix(ref, "file:"):
		return readFile(strings.TrimPrefix(ref, "file:"))
	case filepath.IsAbs(ref):
		return readFile(ref)
	}
	return nil, errs.Resolution(errs.ReasonNotFound, short(ref), fmt.Errorf("unsupported image reference"))
}

func (r *Resolver) readCache(id string) (*image.RGBA, error) {
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return nil, errs.Resolution(errs.ReasonNotFound, "cache:"+id, fmt.Errorf("invalid cache identifier"))
	}
	return readFile(filepath.Join(r.cacheDir, id))
}

func readFile(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Resolution(errs.ReasonNotFound, path, err)
		}
		return nil, errs.Resolution(errs.ReasonUnreachable, path, err)
	}
	defer f.Close()

	return decode(f, path)
}

// short keeps inline payloads out of error messages.
func short(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "…"
	}
	return ref
}
