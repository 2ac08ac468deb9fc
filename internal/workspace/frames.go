package workspace

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/panel2video/internal/errs"
)

// FrameWriter materializes frames into a workspace with a bounded pool of
// writers. Order is carried by sequence numbers only, so writes may finish
// out of order.
type FrameWriter struct {
	ws      *Workspace
	ctx     context.Context
	g       *errgroup.Group
	enc     png.Encoder
	written atomic.Int64
}

// NewFrameWriter starts a writer pool of the given size. The returned writer
// stops accepting work once ctx is done or any write fails.
func NewFrameWriter(ctx context.Context, ws *Workspace, workers int) *FrameWriter {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	return &FrameWriter{
		ws:  ws,
		ctx: gctx,
		g:   g,
		enc: png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Write queues count copies of img as frames start..start+count-1. It blocks
// while all writers are busy. img must not be modified afterwards.
func (fw *FrameWriter) Write(start, count int, img *image.RGBA) error {
	return fw.WriteAndRelease(start, count, img, nil)
}

// WriteAndRelease is Write for a borrowed img: release runs exactly once,
// as soon as img has been encoded or the write is refused.
func (fw *FrameWriter) WriteAndRelease(start, count int, img *image.RGBA, release func()) error {
	if release == nil {
		release = func() {}
	}
	if err := fw.ctx.Err(); err != nil {
		release()
		return errs.New(errs.KindWorkspace, "write frames", err)
	}
	fw.g.Go(func() error {
		var buf bytes.Buffer
		err := fw.enc.Encode(&buf, flatten(img))
		release()
		if err != nil {
			return errs.New(errs.KindWorkspace, "encode frame", fmt.Errorf("frame %d: %w", start, err))
		}
		data := buf.Bytes()
		for i := start; i < start+count; i++ {
			if err := fw.ctx.Err(); err != nil {
				return err
			}
			if err := os.WriteFile(fw.ws.FramePath(i), data, 0644); err != nil {
				return errs.New(errs.KindWorkspace, "write frame", err)
			}
			fw.written.Add(1)
		}
		return nil
	})
	return nil
}

// Wait blocks until every queued frame is on disk and returns how many were
// written together with the first failure.
func (fw *FrameWriter) Wait() (int, error) {
	err := fw.g.Wait()
	return int(fw.written.Load()), err
}

// flatten composites img over opaque black when it has any transparency.
func flatten(img *image.RGBA) *image.RGBA {
	if img.Opaque() {
		return img
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}
