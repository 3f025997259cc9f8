package engine

import (
	"math"
)

// Summary is derived once after the trial loop ends.
type Summary struct {
	SessionID        string  `yaml:"session_id"`
	Seed             int64   `yaml:"seed"`
	Trials           int     `yaml:"trials"`
	Correct          int     `yaml:"correct"`
	Incorrect        int     `yaml:"incorrect"`
	Timeouts         int     `yaml:"timeouts"`
	Failed           int     `yaml:"failed"`
	Accuracy         float64 `yaml:"accuracy"`
	Samples          int     `yaml:"samples"`
	MeanReactionTime float64 `yaml:"mean_reaction_time"`
	SDReactionTime   float64 `yaml:"sd_reaction_time"`
}

// ReactionTimePool collects every recorded reaction time of the results:
// one per attempt, plus the timeout value for each timed-out trial.
func ReactionTimePool(results []TrialResult) []float64 {
	var pool []float64
	for _, r := range results {
		pool = appendPool(pool, r)
	}
	return pool
}

func appendPool(pool []float64, r TrialResult) []float64 {
	for _, a := range r.Attempts {
		pool = append(pool, a.ReactionTime)
	}
	if r.Outcome == OutcomeTimeout {
		pool = append(pool, r.ReactionTime)
	}
	return pool
}

// MeanReactionTime returns the arithmetic mean of the pool, or
// ErrEmptyResultSet when nothing was recorded.
func MeanReactionTime(pool []float64) (float64, error) {
	if len(pool) == 0 {
		return 0, ErrEmptyResultSet
	}
	var sum float64
	for _, rt := range pool {
		sum += rt
	}
	return sum / float64(len(pool)), nil
}

// ReactionTimeSD is the population standard deviation; 0 below two samples.
func ReactionTimeSD(pool []float64) float64 {
	if len(pool) <= 1 {
		return 0
	}
	avg, _ := MeanReactionTime(pool)
	var sumSquaredDiff float64
	for _, rt := range pool {
		diff := rt - avg
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(pool)))
}

// Summarize counts outcomes and computes the pool statistics. The counts are
// filled even when the pool is empty and ErrEmptyResultSet is returned.
func Summarize(results []TrialResult, pool []float64) (Summary, error) {
	s := Summary{Trials: len(results), Samples: len(pool)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCorrect:
			s.Correct++
		case OutcomeIncorrect:
			s.Incorrect++
		case OutcomeTimeout:
			s.Timeouts++
		}
	}
	if s.Trials > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Trials)
	}

	mean, err := MeanReactionTime(pool)
	if err != nil {
		return s, err
	}
	s.MeanReactionTime = mean
	s.SDReactionTime = ReactionTimeSD(pool)
	return s, nil
}
