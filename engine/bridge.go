package engine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Bridge receives the ordered lifecycle of every trial: TrialStart,
// StimulusOnset, one Response per click, then TrialEnd.
type Bridge interface {
	TrialStart(t *Trial, ordinal int) error
	StimulusOnset(t *Trial, at time.Duration) error
	Response(t *Trial, a Attempt) error
	TrialEnd(r TrialResult) error
	Close() error
}

type NopBridge struct{}

func (NopBridge) TrialStart(*Trial, int) error              { return nil }
func (NopBridge) StimulusOnset(*Trial, time.Duration) error { return nil }
func (NopBridge) Response(*Trial, Attempt) error            { return nil }
func (NopBridge) TrialEnd(TrialResult) error                { return nil }
func (NopBridge) Close() error                              { return nil }

// MultiBridge fans every notification out to several bridges in order.
type MultiBridge []Bridge

func (m MultiBridge) TrialStart(t *Trial, ordinal int) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.TrialStart(t, ordinal))
	}
	return errors.Join(errs...)
}

func (m MultiBridge) StimulusOnset(t *Trial, at time.Duration) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.StimulusOnset(t, at))
	}
	return errors.Join(errs...)
}

func (m MultiBridge) Response(t *Trial, a Attempt) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.Response(t, a))
	}
	return errors.Join(errs...)
}

func (m MultiBridge) TrialEnd(r TrialResult) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.TrialEnd(r))
	}
	return errors.Join(errs...)
}

func (m MultiBridge) Close() error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

// MessageBridge writes eye-tracker style messages, one per line, prefixed
// with the clock time in milliseconds:
//
//	MSG 1520 TRIALID 3
//	MSG 3521 image_onset
//	MSG 3521 !V IMGLOAD CENTER stimuli/img003.jpg 960 540 1024 768
//	MSG 3521 !V IAREA RECTANGLE 1 512 300 640 410 target
//	MSG 4310 click 351 402 0.789 hit
//	MSG 4310 TRIAL_RESULT correct 0.789
//
// The IMGLOAD and IAREA lines need Display; without it only image_onset is
// written at stimulus onset.
type MessageBridge struct {
	// Display places the stimulus and its target region in screen pixels.
	Display *Display
	// ImagePath names the stimulus in IMGLOAD. Defaults to stimulus_<index>.
	ImagePath func(index int) string

	w     io.Writer
	clock Clock
}

func NewMessageBridge(w io.Writer, clock Clock) *MessageBridge {
	return &MessageBridge{w: w, clock: clock}
}

func (b *MessageBridge) msg(format string, args ...any) error {
	return b.msgAt(b.clock.Now(), format, args...)
}

func (b *MessageBridge) msgAt(at time.Duration, format string, args ...any) error {
	_, err := fmt.Fprintf(b.w, "MSG %d "+format+"\n", append([]any{at.Milliseconds()}, args...)...)
	return err
}

func (b *MessageBridge) TrialStart(t *Trial, ordinal int) error {
	if err := b.msg("TRIALID %d", ordinal); err != nil {
		return err
	}
	return b.msg("!V TRIAL_VAR image %d", t.Index)
}

// StimulusOnset stamps its messages with the presentation time, not the
// time of the call.
func (b *MessageBridge) StimulusOnset(t *Trial, at time.Duration) error {
	if err := b.msgAt(at, "image_onset"); err != nil {
		return err
	}
	if b.Display == nil || t.Stimulus == nil {
		return nil
	}

	name := fmt.Sprintf("stimulus_%d", t.Index)
	if b.ImagePath != nil {
		name = b.ImagePath(t.Index)
	}
	drawn := b.Display.destRect(t.Stimulus)
	c := drawn.Min.Add(drawn.Max).Div(2)
	if err := b.msgAt(at, "!V IMGLOAD CENTER %s %d %d %d %d", name, c.X, c.Y, drawn.Dx(), drawn.Dy()); err != nil {
		return err
	}
	if t.Mask == nil || t.Mask.Count() == 0 {
		return nil
	}
	r := b.Display.Centered(t.Stimulus).Rect(t.Mask.Bounds())
	return b.msgAt(at, "!V IAREA RECTANGLE 1 %d %d %d %d target", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

func (b *MessageBridge) Response(t *Trial, a Attempt) error {
	verdict := "miss"
	if a.Hit {
		verdict = "hit"
	}
	return b.msg("click %d %d %.3f %s", a.Pos.X, a.Pos.Y, a.ReactionTime, verdict)
}

func (b *MessageBridge) TrialEnd(r TrialResult) error {
	if r.Outcome == OutcomeTimeout {
		if err := b.msg("time_out"); err != nil {
			return err
		}
	}
	if err := b.msg("!V TRIAL_VAR RT %d", int64(math.Round(r.ReactionTime*1000))); err != nil {
		return err
	}
	return b.msg("TRIAL_RESULT %s %.3f", r.Outcome, r.ReactionTime)
}

func (b *MessageBridge) Close() error {
	if c, ok := b.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
