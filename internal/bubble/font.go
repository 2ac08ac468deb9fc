package bubble

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// loadFont returns the first usable font from paths, falling back to the
// embedded Go Bold face so that output does not depend on the host.
func loadFont(paths []string, logger *log.Logger) (*opentype.Font, string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f, err := parseFontFile(path)
		if err != nil {
			logger.Printf("[!] Шрифт %s не загружен: %v", path, err)
			continue
		}
		return f, path, nil
	}

	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return f, "gobold (embedded)", nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font collection: %w", err)
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}

// newFace builds a face for one render call; faces keep glyph buffers and are
// not safe for concurrent use, the parsed font is.
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
