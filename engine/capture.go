package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the response window after stimulus onset.
const DefaultTimeout = 20 * time.Second

type CaptureConfig struct {
	Timeout time.Duration
	// MultiAttempt keeps the trial open after a miss; otherwise the first
	// miss resolves it as incorrect.
	MultiAttempt bool
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{Timeout: DefaultTimeout, MultiAttempt: true}
}

// Feedback is notified of every classified click.
type Feedback interface {
	Click(hit bool)
}

// Capture runs the response window of a trial.
type Capture struct {
	display  *Display
	cfg      CaptureConfig
	events   *EventLog
	feedback Feedback
	log      *zap.Logger
}

func NewCapture(d *Display, cfg CaptureConfig, events *EventLog, feedback Feedback, log *zap.Logger) *Capture {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Capture{display: d, cfg: cfg, events: events, feedback: feedback, log: log}
}

// Await polls input once per tick until a click resolves the trial or the
// timeout elapses. observe, when set, sees every attempt as it happens.
func (c *Capture) Await(ctx context.Context, trial *Trial, onset time.Duration, hit HitTester, observe func(Attempt)) (TrialResult, error) {
	d := c.display
	res := TrialResult{TrialIndex: trial.Index}

	for {
		if err := ctx.Err(); err != nil {
			return TrialResult{}, err
		}

		events := d.Input.Poll()
		if quitRequested(events) {
			return TrialResult{}, ErrAborted
		}
		for _, ev := range events {
			switch ev.Kind {
			case EventPointerDown:
				at := ev.At
				if at == 0 {
					at = d.Clock.Now()
				}
				if at < onset || at-onset > c.cfg.Timeout {
					continue
				}

				a := Attempt{Pos: ev.Pos, ReactionTime: Seconds(at - onset), Hit: hit.Hit(ev.Pos)}
				res.Attempts = append(res.Attempts, a)
				c.record(trial, at, a)
				if observe != nil {
					observe(a)
				}

				if a.Hit || !c.cfg.MultiAttempt {
					pos := a.Pos
					res.Click = &pos
					res.ReactionTime = a.ReactionTime
					res.Outcome = OutcomeCorrect
					if !a.Hit {
						res.Outcome = OutcomeIncorrect
					}
					return res, nil
				}
			}
		}

		now := d.Clock.Now()
		if now-onset > c.cfg.Timeout {
			res.Outcome = OutcomeTimeout
			res.ReactionTime = Seconds(c.cfg.Timeout)
			c.events.Log(onset+c.cfg.Timeout, now, "TIMEOUT", fmt.Sprintf("trial %d", trial.Index))
			c.log.Info("Trial timed out",
				zap.Int("index", trial.Index),
				zap.Int("attempts", len(res.Attempts)))
			return res, nil
		}

		d.render(trial.Stimulus)
		d.Clock.Sleep(d.Tick)
	}
}

func (c *Capture) record(trial *Trial, at time.Duration, a Attempt) {
	kind := "CLICK_MISS"
	if a.Hit {
		kind = "CLICK_HIT"
	}
	c.events.Log(at, at, kind, fmt.Sprintf("trial %d at %d,%d", trial.Index, a.Pos.X, a.Pos.Y))
	c.log.Debug("Click",
		zap.Int("index", trial.Index),
		zap.Int("x", a.Pos.X),
		zap.Int("y", a.Pos.Y),
		zap.Float64("rt", a.ReactionTime),
		zap.Bool("hit", a.Hit))
	if c.feedback != nil {
		c.feedback.Click(a.Hit)
	}
}
