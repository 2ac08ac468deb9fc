package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/errs"
	"github.com/ivlev/panel2video/internal/job"
	"github.com/ivlev/panel2video/internal/system"
	"github.com/ivlev/panel2video/internal/timeline"
	"github.com/ivlev/panel2video/internal/video"
	"github.com/ivlev/panel2video/internal/workspace"
)

// OutputPrefix начинает имена временных каталогов и сгенерированных видео.
const OutputPrefix = "webtoon_video_"

// имя итогового файла внутри рабочего каталога
const encodedName = "output.mp4"

type Resolver interface {
	Resolve(ctx context.Context, ref string) (*image.RGBA, error)
}

type VideoProject struct {
	Config   config.VideoConfig
	Resolver Resolver
	Bubbles  timeline.BubbleRenderer
	Encoder  video.Encoder
	Workers  int
	Logger   *log.Logger
}

func NewVideoProject(cfg config.VideoConfig, res Resolver, bubbles timeline.BubbleRenderer, enc video.Encoder, workers int, logger *log.Logger) *VideoProject {
	if logger == nil {
		logger = log.Default()
	}
	return &VideoProject{
		Config:   cfg,
		Resolver: res,
		Bubbles:  bubbles,
		Encoder:  enc,
		Workers:  max(workers, 1),
		Logger:   logger,
	}
}

// Build собирает видео по заданию и возвращает абсолютный путь к файлу.
// При любой ошибке частичный результат не остаётся на диске.
func (p *VideoProject) Build(ctx context.Context, j *job.Job) (path string, err error) {
	startTime := time.Now()

	if err := p.Config.Validate(); err != nil {
		return "", err
	}
	if err := j.Validate(); err != nil {
		return "", err
	}
	counts := j.BubbleCounts()
	expected := timeline.FrameCount(p.Config, counts)
	if expected == 0 {
		return "", errs.New(errs.KindInvalidConfig, "timeline", fmt.Errorf("all phase durations round to zero frames"))
	}

	p.Logger.Println("--- [PROJECT: PANEL2VIDEO] ---")
	p.Logger.Printf("[*] Панелей: %d | Кадров: %d (%.2fs)", len(j.Panels), expected, float64(expected)/float64(p.Config.FPS))
	p.Logger.Printf("[*] Разрешение: %dx%d @ %d FPS | Потоков: %d", p.Config.Width, p.Config.Height, p.Config.FPS, p.Workers)
	p.Logger.Println("-----------------------------")

	// 1. Загрузка и подготовка панелей (до первого кадра)
	prepareStart := time.Now()
	panels, err := p.preparePanels(ctx, j.Panels)
	if err != nil {
		return "", err
	}
	prepareTime := time.Since(prepareStart)

	ws, err := workspace.Acquire(OutputPrefix)
	if err != nil {
		return "", err
	}
	exported := false
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			if exported || err != nil {
				p.Logger.Printf("[!] Не удалось удалить рабочий каталог %s: %v", ws.Dir(), cerr)
				return
			}
			err = cerr
		}
	}()

	// 2. Композиция -> пул записи кадров
	renderStart := time.Now()
	fw := workspace.NewFrameWriter(ctx, ws, p.Workers)
	builder := timeline.NewBuilder(p.Config, p.Bubbles, p.Logger).WithFramePool(system.NewImagePool())
	emitted, buildErr := builder.Build(ctx, panels, func(s timeline.Segment) error {
		return fw.WriteAndRelease(s.Start, s.Count, s.Image, s.Release)
	})
	written, writeErr := fw.Wait()
	switch {
	case ctx.Err() != nil:
		return "", errs.New(errs.KindCanceled, "build", ctx.Err())
	case writeErr != nil:
		return "", writeErr
	case buildErr != nil:
		return "", buildErr
	case emitted != expected || written != expected:
		return "", errs.New(errs.KindWorkspace, "frames", fmt.Errorf("expected %d frames, emitted %d, written %d", expected, emitted, written))
	}
	renderTime := time.Since(renderStart)
	p.Logger.Printf("[>] Кадры готовы: %d/%d", written, expected)

	// 3. Кодирование, единственный вызов энкодера
	encodeStart := time.Now()
	err = p.Encoder.Encode(ctx, video.EncodeInput{
		Pattern: ws.FramePattern(),
		Frames:  written,
		FPS:     p.Config.FPS,
		Quality: p.Config.Quality,
		Preset:  p.Config.EncoderPreset,
		Output:  ws.Path(encodedName),
	})
	if err != nil {
		return "", err
	}
	encodeTime := time.Since(encodeStart)

	// 4. Копирование результата до удаления рабочего каталога
	dest, err := p.destination(j.Output)
	if err != nil {
		return "", err
	}
	if err := ws.Export(encodedName, dest); err != nil {
		return "", err
	}
	exported = true

	p.Logger.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Total Time: %.2fs\n"+
			"Prepare (resolve+geometry): %.2fs\n"+
			"Rendering (frames): %.2fs\n"+
			"Encoding: %.2fs\n"+
			"----------------------------",
		time.Since(startTime).Seconds(), prepareTime.Seconds(), renderTime.Seconds(), encodeTime.Seconds(),
	)
	p.Logger.Printf("[+++] Успех! Видео сохранено: %s", dest)
	return dest, nil
}

// preparePanels загружает изображения пулом воркеров. Первая ошибка
// отменяет остальные загрузки.
func (p *VideoProject) preparePanels(ctx context.Context, panels []job.Panel) ([]*timeline.PreparedPanel, error) {
	prepared := make([]*timeline.PreparedPanel, len(panels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, panel := range panels {
		g.Go(func() error {
			img, err := p.Resolver.Resolve(gctx, panel.ImageReference)
			if err != nil {
				return errs.WithPanel(err, panel.Number, errs.KindResolution)
			}
			pp, err := timeline.Prepare(img, panel.Number, panel.Bubbles, p.Config)
			if err != nil {
				return err
			}
			prepared[i] = pp
			p.Logger.Printf("[>] Панель %d загружена (%dx%d)", panel.Number, img.Bounds().Dx(), img.Bounds().Dy())
			return nil
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil, errs.New(errs.KindCanceled, "resolve", ctx.Err())
	}
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

// destination возвращает абсолютный путь результата: заданный или
// сгенерированный в каталоге вывода.
func (p *VideoProject) destination(output string) (string, error) {
	if output == "" {
		dir := p.Config.OutputDir
		if dir == "" {
			dir = os.TempDir()
		}
		output = filepath.Join(dir, OutputPrefix+uuid.NewString()+".mp4")
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", errs.New(errs.KindWorkspace, "destination", err)
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return "", errs.New(errs.KindWorkspace, "destination", fmt.Errorf("%s is a directory", abs))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", errs.New(errs.KindWorkspace, "destination", err)
	}
	return abs, nil
}
