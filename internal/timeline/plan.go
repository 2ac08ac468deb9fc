// Package timeline turns prepared panels into the ordered frame sequence of a
// video.
//
// Every panel goes through the same phases: the bubble-free base, one phase
// per bubble in reveal order, a final pause on the base, and a scroll
// transition into the next panel (none after the last one). Frame counts
// depend only on the configuration and the number of bubbles per panel, so the
// whole layout is known before a single pixel is drawn.
package timeline

import (
	"github.com/ivlev/panel2video/internal/config"
)

// Phase is one step of a panel's presentation.
type Phase int

const (
	PhaseBase Phase = iota
	PhaseBubble
	PhasePause
	PhaseTransition
)

func (p Phase) String() string {
	switch p {
	case PhaseBase:
		return "base"
	case PhaseBubble:
		return "bubble"
	case PhasePause:
		return "pause"
	case PhaseTransition:
		return "transition"
	}
	return "unknown"
}

// Span is a planned phase: Count frames starting at sequence number Start.
type Span struct {
	Panel  int // Position of the panel in the job
	Phase  Phase
	Bubble int // Bubble index, PhaseBubble only
	Start  int
	Count  int
}

// Plan lays out every non-empty phase of a job with the given bubble counts.
func Plan(cfg config.VideoConfig, bubbleCounts []int) []Span {
	base := cfg.Frames(cfg.BaseDurationMS)
	bubble := cfg.Frames(cfg.BubbleDurationMS)
	pause := cfg.Frames(cfg.FinalPauseMS)
	transition := cfg.Frames(cfg.TransitionDurationMS)

	var spans []Span
	next := 0
	add := func(panel int, phase Phase, bubbleIdx, count int) {
		if count <= 0 {
			return
		}
		spans = append(spans, Span{Panel: panel, Phase: phase, Bubble: bubbleIdx, Start: next, Count: count})
		next += count
	}

	for i, n := range bubbleCounts {
		add(i, PhaseBase, 0, base)
		for k := 0; k < n; k++ {
			add(i, PhaseBubble, k, bubble)
		}
		add(i, PhasePause, 0, pause)
		if i < len(bubbleCounts)-1 {
			add(i, PhaseTransition, 0, transition)
		}
	}
	return spans
}

// FrameCount is the closed-form total length of a job in frames.
func FrameCount(cfg config.VideoConfig, bubbleCounts []int) int {
	if len(bubbleCounts) == 0 {
		return 0
	}
	bubbles := 0
	for _, n := range bubbleCounts {
		bubbles += n
	}
	panels := len(bubbleCounts)
	return panels*(cfg.Frames(cfg.BaseDurationMS)+cfg.Frames(cfg.FinalPauseMS)) +
		bubbles*cfg.Frames(cfg.BubbleDurationMS) +
		(panels-1)*cfg.Frames(cfg.TransitionDurationMS)
}
