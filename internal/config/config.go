package config

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/panel2video/internal/errs"
)

// VideoConfig описывает одну сборку. После Validate не изменяется.
type VideoConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	BaseDurationMS       int `yaml:"base_duration_ms"`
	BubbleDurationMS     int `yaml:"bubble_duration_ms"`
	FinalPauseMS         int `yaml:"final_pause_ms"`
	TransitionDurationMS int `yaml:"transition_duration_ms"`

	FontSize          float64  `yaml:"font_size"`
	FontPaths         []string `yaml:"font_paths"`
	BubblePadding     int      `yaml:"bubble_padding"`
	BubbleOpacity     float64  `yaml:"bubble_bg_opacity"`
	BubbleBorderWidth int      `yaml:"bubble_border_width"`
	BubbleBorderColor string   `yaml:"bubble_border_color"`
	BubbleTextColor   string   `yaml:"bubble_text_color"`
	BubbleRadius      int      `yaml:"bubble_corner_radius"`
	BubbleAssetPath   string   `yaml:"bubble_asset_path"`

	Quality       int           `yaml:"crf"`
	EncoderPreset string        `yaml:"encoder_preset"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	Timeout       time.Duration `yaml:"encoder_timeout"`
	TailBytes     int           `yaml:"diagnostic_tail_bytes"`

	CacheDir    string        `yaml:"cache_dir"`
	OutputDir   string        `yaml:"output_dir"`
	DPI         int           `yaml:"dpi"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Workers     int           `yaml:"workers"`
}

// DefaultFontPaths: системные шрифты, которые пробуются по порядку.
var DefaultFontPaths = []string{
	"/System/Library/Fonts/Helvetica.ttc",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// Default возвращает конфигурацию 4:5 (1080x1350) для вебтунов.
func Default() VideoConfig {
	return VideoConfig{
		Width:                1080,
		Height:               1350,
		FPS:                  30,
		BaseDurationMS:       3000,
		BubbleDurationMS:     2000,
		FinalPauseMS:         500,
		TransitionDurationMS: 500,
		FontSize:             39,
		FontPaths:            append([]string(nil), DefaultFontPaths...),
		BubblePadding:        30,
		BubbleOpacity:        0.85,
		BubbleBorderWidth:    4,
		BubbleBorderColor:    "#4a4a4a",
		BubbleTextColor:      "#000000",
		BubbleRadius:         20,
		Quality:              18,
		EncoderPreset:        "slow",
		FFmpegPath:           "ffmpeg",
		Timeout:              300 * time.Second,
		TailBytes:            1000,
		CacheDir:             "cache/images",
		DPI:                  150,
		HTTPTimeout:          60 * time.Second,
	}
}

// ApplyPreset переключает разрешение по имени формата.
func (c *VideoConfig) ApplyPreset(preset string) error {
	switch preset {
	case "":
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "16:9":
		c.Width, c.Height = 1280, 720
	default:
		return errs.New(errs.KindInvalidConfig, "preset", fmt.Errorf("unknown preset %q", preset))
	}
	return nil
}

// ApplyEnv переопределяет пути из переменных окружения.
func (c *VideoConfig) ApplyEnv() {
	if v := os.Getenv("PANEL2VIDEO_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("PANEL2VIDEO_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("PANEL2VIDEO_FFMPEG"); v != "" {
		c.FFmpegPath = v
	}
	if v := os.Getenv("PANEL2VIDEO_FONT"); v != "" {
		c.FontPaths = append([]string{v}, c.FontPaths...)
	}
	if v := os.Getenv("PANEL2VIDEO_BUBBLE_ASSET"); v != "" {
		c.BubbleAssetPath = v
	}
}

// Validate проверяет конфигурацию до начала сборки.
func (c *VideoConfig) Validate() error {
	var problems []string
	if c.Width <= 0 || c.Height <= 0 {
		problems = append(problems, fmt.Sprintf("resolution %dx%d must be positive", c.Width, c.Height))
	} else if c.Width%2 != 0 || c.Height%2 != 0 {
		// yuv420p требует чётных размеров
		problems = append(problems, fmt.Sprintf("resolution %dx%d must be even", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		problems = append(problems, "fps must be positive")
	}
	for name, ms := range map[string]int{
		"base_duration_ms":       c.BaseDurationMS,
		"bubble_duration_ms":     c.BubbleDurationMS,
		"final_pause_ms":         c.FinalPauseMS,
		"transition_duration_ms": c.TransitionDurationMS,
	} {
		if ms < 0 {
			problems = append(problems, name+" must not be negative")
		}
	}
	if c.FontSize <= 0 {
		problems = append(problems, "font_size must be positive")
	}
	if c.BubbleOpacity < 0 || c.BubbleOpacity > 1 {
		problems = append(problems, "bubble_bg_opacity must be within [0,1]")
	}
	if c.BubblePadding < 0 || c.BubbleBorderWidth < 0 || c.BubbleRadius < 0 {
		problems = append(problems, "bubble padding, border and radius must not be negative")
	}
	if _, err := ParseHexColor(c.BubbleBorderColor); err != nil {
		problems = append(problems, "bubble_border_color: "+err.Error())
	}
	if _, err := ParseHexColor(c.BubbleTextColor); err != nil {
		problems = append(problems, "bubble_text_color: "+err.Error())
	}
	if c.Quality < 0 || c.Quality > 51 {
		problems = append(problems, "crf must be within [0,51]")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "encoder_timeout must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	// map iteration order is random; keep messages stable
	sort.Strings(problems)
	return errs.New(errs.KindInvalidConfig, "validate", fmt.Errorf("%s", strings.Join(problems, "; ")))
}

// Frames переводит длительность фазы в количество кадров.
func (c *VideoConfig) Frames(ms int) int {
	return int(math.Round(float64(ms) / 1000 * float64(c.FPS)))
}

// ParseHexColor разбирает цвет вида "#rrggbb" (решётка необязательна).
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q is not #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
