package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/panel2video/internal/config"
	"github.com/ivlev/panel2video/internal/errs"
)

// EncodeInput describes one encoder run over a numbered PNG sequence.
type EncodeInput struct {
	Pattern string // printf-style frame path, e.g. /tmp/x/frame_%06d.png
	Frames  int
	FPS     int
	Quality int // CRF
	Preset  string
	Output  string
}

type Encoder interface {
	Encode(ctx context.Context, in EncodeInput) error
}

// FFmpegEncoder runs the ffmpeg binary with a fixed H.264 template.
type FFmpegEncoder struct {
	Binary    string
	Timeout   time.Duration
	TailBytes int
	Logger    *log.Logger
}

func NewFFmpegEncoder(cfg config.VideoConfig, logger *log.Logger) *FFmpegEncoder {
	if logger == nil {
		logger = log.Default()
	}
	return &FFmpegEncoder{
		Binary:    cfg.FFmpegPath,
		Timeout:   cfg.Timeout,
		TailBytes: cfg.TailBytes,
		Logger:    logger,
	}
}

// Encode is the only timed step of a build. The process is killed once
// Timeout elapses; its stderr tail is kept for diagnostics.
func (e *FFmpegEncoder) Encode(ctx context.Context, in EncodeInput) error {
	bin, err := exec.LookPath(e.Binary)
	if err != nil {
		return errs.New(errs.KindEncoderMissing, "lookup", err)
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	stderr := newTailBuffer(e.TailBytes)
	cmd := exec.CommandContext(runCtx, bin, buildArgs(in)...)
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	e.Logger.Printf("[*] Кодирование %d кадров (%d FPS, crf %d)...", in.Frames, in.FPS, in.Quality)
	start := time.Now()
	runErr := cmd.Run()

	switch {
	case ctx.Err() != nil:
		return errs.New(errs.KindCanceled, "encode", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return &errs.Error{
			Kind:   errs.KindEncoderTimeout,
			Op:     "encode",
			Detail: errs.Tail(stderr.String(), e.TailBytes),
			Err:    fmt.Errorf("ffmpeg did not finish in %s", e.Timeout),
		}
	case runErr != nil:
		return &errs.Error{
			Kind:   errs.KindEncoderFailed,
			Op:     "encode",
			Detail: errs.Tail(stderr.String(), e.TailBytes),
			Err:    runErr,
		}
	}

	fi, err := os.Stat(in.Output)
	if err != nil || fi.Size() == 0 {
		return &errs.Error{
			Kind:   errs.KindEncoderFailed,
			Op:     "encode",
			Detail: errs.Tail(stderr.String(), e.TailBytes),
			Err:    fmt.Errorf("no output written to %s", in.Output),
		}
	}
	e.Logger.Printf("[*] Кодирование завершено за %.2fs (%d КБ)", time.Since(start).Seconds(), fi.Size()/1024)
	return nil
}

func buildArgs(in EncodeInput) []string {
	fps := strconv.Itoa(in.FPS)
	preset := in.Preset
	if preset == "" {
		preset = "slow"
	}
	return []string{
		"-y",
		"-framerate", fps,
		"-i", in.Pattern,
		"-c:v", "libx264",
		"-profile:v", "high",
		"-level", "4.0",
		"-crf", strconv.Itoa(in.Quality),
		"-preset", preset,
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-movflags", "+faststart",
		"-an",
		in.Output,
	}
}

// ProbeDuration reads the container duration of path in seconds.
func ProbeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w, output: %s", err, strings.TrimSpace(string(out)))
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}

	return duration, nil
}
