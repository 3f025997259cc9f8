package engine

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Image is an opaque raster handle that a Surface knows how to draw.
type Image interface {
	Size() (w, h int)
}

// Trial is the immutable specification of one presentation.
type Trial struct {
	Index    int
	Target   Image
	Stimulus Image
	Mask     *Mask
}

type Outcome int

const (
	OutcomeCorrect Outcome = iota
	OutcomeIncorrect
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomeTimeout:
		return "timeout"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "correct":
		return OutcomeCorrect, nil
	case "incorrect":
		return OutcomeIncorrect, nil
	case "timeout":
		return OutcomeTimeout, nil
	}
	return 0, fmt.Errorf("unknown outcome: %q", s)
}

// Attempt is one click observed while a trial was awaiting a response.
type Attempt struct {
	Pos          image.Point
	ReactionTime float64
	Hit          bool
}

// TrialResult is created the instant a trial concludes and is never mutated
// after it has been appended to a session.
type TrialResult struct {
	Ordinal      int
	TrialIndex   int
	ReactionTime float64
	Outcome      Outcome
	Click        *image.Point
	Attempts     []Attempt
}

// Seconds converts a clock duration to the reaction-time unit used in results.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}
