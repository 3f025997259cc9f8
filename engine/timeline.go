package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Phase holds one image on screen for a fixed duration.
type Phase struct {
	Name     string
	Image    Image
	Duration time.Duration
}

// Timing holds the durations of the three timed phases of a trial.
type Timing struct {
	BackgroundA time.Duration
	Target      time.Duration
	BackgroundB time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		BackgroundA: 500 * time.Millisecond,
		Target:      1500 * time.Millisecond,
		BackgroundB: 500 * time.Millisecond,
	}
}

// Phases returns background_A, target cue and background_B for one trial.
func (t Timing) Phases(bgA, target, bgB Image) []Phase {
	return []Phase{
		{Name: "background_a", Image: bgA, Duration: t.BackgroundA},
		{Name: "target", Image: target, Duration: t.Target},
		{Name: "background_b", Image: bgB, Duration: t.BackgroundB},
	}
}

// Timeline plays timed phases on the display, re-rendering once per tick.
type Timeline struct {
	display *Display
	events  *EventLog
	log     *zap.Logger
}

func NewTimeline(d *Display, events *EventLog, log *zap.Logger) *Timeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Timeline{display: d, events: events, log: log}
}

// Play holds every phase for its duration, strictly in order. It returns
// ErrAborted when the participant quits, or the context error.
func (t *Timeline) Play(ctx context.Context, phases []Phase) error {
	if len(phases) == 0 {
		return nil
	}
	intended := t.display.Clock.Now()
	for _, ph := range phases {
		if err := t.hold(ctx, ph, intended); err != nil {
			return err
		}
		intended += ph.Duration
	}
	return nil
}

func (t *Timeline) hold(ctx context.Context, ph Phase, intended time.Duration) error {
	d := t.display
	d.render(ph.Image)
	start := d.Clock.Now()
	t.events.Log(intended, start, "PHASE_ONSET", ph.Name)

	if late := start - intended; late > d.Tick {
		t.log.Warn("Phase onset late",
			zap.String("phase", ph.Name),
			zap.Duration("late", late))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if quitRequested(d.Input.Poll()) {
			return ErrAborted
		}
		elapsed := d.Clock.Now() - start
		if elapsed >= ph.Duration {
			return nil
		}
		d.render(ph.Image)
		d.Clock.Sleep(min(d.Tick, ph.Duration-elapsed))
	}
}

// ShowStimulus discards pending input, presents the search scene and returns
// its onset time. Nothing that happened before the onset can reach the
// response window that follows.
func (t *Timeline) ShowStimulus(img Image, label string) time.Duration {
	d := t.display
	d.Input.Flush()
	d.render(img)
	onset := d.Clock.Now()
	t.events.Log(onset, onset, "STIMULUS_ONSET", label)
	return onset
}

func quitRequested(events []InputEvent) bool {
	for _, ev := range events {
		if ev.Kind == EventQuit {
			return true
		}
	}
	return false
}
