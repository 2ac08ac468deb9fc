// Package workspace owns the scratch directory of one build.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ivlev/panel2video/internal/errs"
)

// framePattern is the printf pattern the encoder reads frames with.
const framePattern = "frame_%06d.png"

// Workspace is a temporary directory removed by Close.
type Workspace struct {
	dir string

	once sync.Once
	err  error
}

// Acquire creates a fresh workspace. Callers defer Close right away.
func Acquire(prefix string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, errs.New(errs.KindWorkspace, "acquire", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Path returns name inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// FramePattern is the printf-style path of the frame sequence.
func (w *Workspace) FramePattern() string { return w.Path(framePattern) }

// FramePath is the file of frame i.
func (w *Workspace) FramePath(i int) string { return w.Path(fmt.Sprintf(framePattern, i)) }

// Close removes the workspace. Repeated calls return the first result.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.err = errs.New(errs.KindWorkspace, "cleanup", err)
		}
	})
	return w.err
}

// Export copies the workspace file name to dst. The copy goes through a .part
// file next to dst and is renamed into place, so dst either does not exist or
// is complete.
func (w *Workspace) Export(name, dst string) (err error) {
	src, err := os.Open(w.Path(name))
	if err != nil {
		return errs.New(errs.KindWorkspace, "export", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errs.New(errs.KindWorkspace, "export", err)
	}

	part := dst + ".part"
	out, err := os.Create(part)
	if err != nil {
		return errs.New(errs.KindWorkspace, "export", err)
	}
	defer func() {
		if err != nil {
			os.Remove(part)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return errs.New(errs.KindWorkspace, "export", err)
	}
	if err := out.Close(); err != nil {
		return errs.New(errs.KindWorkspace, "export", err)
	}
	if err := os.Rename(part, dst); err != nil {
		return errs.New(errs.KindWorkspace, "export", err)
	}
	return nil
}
