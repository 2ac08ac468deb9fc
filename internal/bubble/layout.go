package bubble

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/text/unicode/norm"
)

// lineSpacing is the gap between wrapped lines, in pixels.
const lineSpacing = 4

// minCharsPerLine keeps very narrow boxes readable.
const minCharsPerLine = 5

// Wrap breaks text into lines of at most columns characters. All whitespace,
// line breaks included, separates words; words longer than a line are split.
func Wrap(text string, columns int) []string {
	if columns < 1 {
		columns = 1
	}
	words := strings.Fields(norm.NFC.String(text))
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curLen = 0
	}

	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if curLen > 0 && curLen+1+wl <= columns {
			cur.WriteByte(' ')
			cur.WriteString(w)
			curLen += 1 + wl
			continue
		}
		if curLen > 0 {
			flush()
		}
		for wl > columns {
			head, rest := splitRunes(w, columns)
			lines = append(lines, head)
			w, wl = rest, wl-columns
		}
		cur.WriteString(w)
		curLen = wl
	}
	if curLen > 0 {
		flush()
	}
	return lines
}

// splitRunes cuts s after n runes.
func splitRunes(s string, n int) (head, rest string) {
	for i := range s {
		if n == 0 {
			return s[:i], s[i:]
		}
		n--
	}
	return s, ""
}

// textBlock measures lines drawn with face: the widest advance and the
// total height including line spacing.
func textBlock(face font.Face, lines []string) (w, h int) {
	m := face.Metrics()
	lineH := m.Ascent.Ceil() + m.Descent.Ceil()
	for _, line := range lines {
		if lw := font.MeasureString(face, line).Ceil(); lw > w {
			w = lw
		}
	}
	h = len(lines)*lineH + (len(lines)-1)*lineSpacing
	return w, h
}

// inkSize is the tight bounding box of a single line, like a text bbox query.
func inkSize(face font.Face, text string) (w, h int) {
	b, _ := font.BoundString(face, text)
	return (b.Max.X - b.Min.X).Ceil(), (b.Max.Y - b.Min.Y).Ceil()
}
