package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewTrialOrder returns a uniformly random permutation of 1..n (Fisher-Yates).
func NewTrialOrder(n int, rng *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i + 1
	}
	for i := n - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// TrialLoader resolves the assets of one trial.
type TrialLoader interface {
	LoadTrial(index int) (*Trial, error)
}

// TrialReleaser is implemented by loaders that hold per-trial resources.
type TrialReleaser interface {
	ReleaseTrial(t *Trial)
}

// Validate checks the stimulus/mask pairing of a loaded trial.
func (t *Trial) Validate() error {
	if t.Mask == nil || t.Mask.Count() == 0 {
		return &AssetError{Trial: t.Index, Path: "mask", Kind: ErrMalformedMask}
	}
	if t.Stimulus == nil || t.Target == nil {
		return &AssetError{Trial: t.Index, Path: "stimulus", Kind: ErrMissingAsset}
	}
	sw, sh := t.Stimulus.Size()
	mw, mh := t.Mask.Size()
	if sw != mw || sh != mh {
		return &AssetError{
			Trial: t.Index,
			Path:  "mask",
			Kind:  ErrMalformedMask,
			Err:   fmt.Errorf("mask is %dx%d, stimulus is %dx%d", mw, mh, sw, sh),
		}
	}
	return nil
}

// Session is the state of one participant run.
type Session struct {
	ID       string
	Seed     int64
	Order    []int
	Results  []TrialResult
	Pool     []float64
	Failures []error
	Stopped  bool
}

func NewSession(trials int, seed int64) *Session {
	return &Session{
		ID:    uuid.New().String(),
		Seed:  seed,
		Order: NewTrialOrder(trials, rand.New(rand.NewSource(seed))),
	}
}

// Record appends a concluded trial. Every attempt joins the reaction-time
// pool; a timeout contributes the timeout value.
func (s *Session) Record(r TrialResult) {
	s.Results = append(s.Results, r)
	s.Pool = appendPool(s.Pool, r)
}

// Summary computes the end-of-session statistics.
func (s *Session) Summary() (Summary, error) {
	sum, err := Summarize(s.Results, s.Pool)
	sum.SessionID = s.ID
	sum.Seed = s.Seed
	sum.Failed = len(s.Failures)
	return sum, err
}

// Sequencer drives one trial run per entry of the session's order.
type Sequencer struct {
	Display     *Display
	Timeline    *Timeline
	Capture     *Capture
	Loader      TrialLoader
	Bridge      Bridge
	Strategy    HitStrategy
	Timing      Timing
	Backgrounds [2]Image
	Log         *zap.Logger

	// StopOnFirstCorrect ends the session after the first correct trial.
	StopOnFirstCorrect bool
	// AbortOnAssetError makes a missing or malformed asset end the session
	// instead of skipping the trial.
	AbortOnAssetError bool
}

// Run presents every trial of the session in order. It returns ErrAborted
// when the participant quits; the results gathered so far stay in sess.
func (q *Sequencer) Run(ctx context.Context, sess *Session) error {
	log := q.Log
	if log == nil {
		log = zap.NewNop()
	}
	bridge := q.Bridge
	if bridge == nil {
		bridge = NopBridge{}
	}

	for i, idx := range sess.Order {
		ordinal := i + 1
		log.Info("Starting trial", zap.Int("trial", ordinal), zap.Int("index", idx))

		trial, err := q.Loader.LoadTrial(idx)
		if err == nil {
			err = trial.Validate()
		}
		if err != nil {
			if rel, ok := q.Loader.(TrialReleaser); ok && trial != nil {
				rel.ReleaseTrial(trial)
			}
			log.Error("Trial assets unusable", zap.Int("index", idx), zap.Error(err))
			if q.AbortOnAssetError {
				return err
			}
			sess.Failures = append(sess.Failures, err)
			continue
		}

		res, err := q.runTrial(ctx, ordinal, trial, bridge, log)
		if rel, ok := q.Loader.(TrialReleaser); ok {
			rel.ReleaseTrial(trial)
		}
		if err != nil {
			if errors.Is(err, ErrMalformedMask) && !q.AbortOnAssetError {
				log.Error("Trial mask unusable", zap.Int("index", idx), zap.Error(err))
				sess.Failures = append(sess.Failures, err)
				continue
			}
			return err
		}
		sess.Record(res)

		log.Info("Trial result",
			zap.Int("trial", ordinal),
			zap.Int("index", idx),
			zap.Stringer("outcome", res.Outcome),
			zap.Float64("rt", res.ReactionTime),
			zap.Int("attempts", len(res.Attempts)))

		if q.StopOnFirstCorrect && res.Outcome == OutcomeCorrect {
			log.Info("Stopping after first correct response", zap.Int("trial", ordinal))
			sess.Stopped = true
			break
		}
	}
	return nil
}

func (q *Sequencer) runTrial(ctx context.Context, ordinal int, trial *Trial, bridge Bridge, log *zap.Logger) (TrialResult, error) {
	hit, err := NewHitTester(q.Strategy, trial.Mask, q.Display.Centered(trial.Stimulus))
	if err != nil {
		return TrialResult{}, &AssetError{Trial: trial.Index, Path: "mask", Kind: ErrMalformedMask, Err: err}
	}

	notify(log, "trial_start", bridge.TrialStart(trial, ordinal))

	phases := q.Timing.Phases(q.Backgrounds[0], trial.Target, q.Backgrounds[1])
	if err := q.Timeline.Play(ctx, phases); err != nil {
		return TrialResult{}, err
	}

	onset := q.Timeline.ShowStimulus(trial.Stimulus, fmt.Sprintf("trial %d", trial.Index))
	notify(log, "stimulus_onset", bridge.StimulusOnset(trial, onset))

	res, err := q.Capture.Await(ctx, trial, onset, hit, func(a Attempt) {
		notify(log, "response", bridge.Response(trial, a))
	})
	if err != nil {
		return TrialResult{}, err
	}
	res.Ordinal = ordinal

	notify(log, "trial_end", bridge.TrialEnd(res))
	return res, nil
}

func notify(log *zap.Logger, event string, err error) {
	if err != nil {
		log.Warn("Bridge notification failed", zap.String("event", event), zap.Error(err))
	}
}
