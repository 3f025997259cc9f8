package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type EventLogEntry struct {
	IntendedMS uint64
	ActualMS   uint64
	Type       string
	Label      string
}

// EventLog records intended and actual times of display and response events,
// relative to Epoch. A nil *EventLog discards everything.
type EventLog struct {
	Epoch   time.Duration
	Entries []EventLogEntry
}

func NewEventLog(epoch time.Duration) *EventLog {
	return &EventLog{Epoch: epoch}
}

func (l *EventLog) ms(t time.Duration) uint64 {
	if t < l.Epoch {
		return 0
	}
	return uint64((t - l.Epoch) / time.Millisecond)
}

func (l *EventLog) Log(intended, actual time.Duration, stype, label string) {
	if l == nil {
		return
	}
	l.Entries = append(l.Entries, EventLogEntry{
		IntendedMS: l.ms(intended),
		ActualMS:   l.ms(actual),
		Type:       stype,
		Label:      label,
	})
}

func (l *EventLog) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"intended_ms", "actual_ms", "type", "label"})
	for _, e := range l.Entries {
		w.Write([]string{
			strconv.FormatUint(e.IntendedMS, 10),
			strconv.FormatUint(e.ActualMS, 10),
			e.Type,
			e.Label,
		})
	}
	w.Flush()
	return w.Error()
}

var resultsHeader = []string{
	"ordinal", "trial_index", "outcome", "reaction_time_s", "click_x", "click_y", "attempts",
}

// SaveResults writes one row per trial. The attempts column lists every click
// as rt/hit or rt/miss, separated by semicolons.
func SaveResults(path string, results []TrialResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(resultsHeader)
	for _, r := range results {
		x, y := "", ""
		if r.Click != nil {
			x, y = strconv.Itoa(r.Click.X), strconv.Itoa(r.Click.Y)
		}
		attempts := make([]string, len(r.Attempts))
		for i, a := range r.Attempts {
			verdict := "miss"
			if a.Hit {
				verdict = "hit"
			}
			attempts[i] = strconv.FormatFloat(a.ReactionTime, 'f', 4, 64) + "/" + verdict
		}
		w.Write([]string{
			strconv.Itoa(r.Ordinal),
			strconv.Itoa(r.TrialIndex),
			r.Outcome.String(),
			strconv.FormatFloat(r.ReactionTime, 'f', 4, 64),
			x, y,
			strings.Join(attempts, ";"),
		})
	}
	w.Flush()
	return w.Error()
}

// LoadResults reads a file written by SaveResults.
func LoadResults(path string) ([]TrialResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var results []TrialResult
	for i, record := range records {
		if i == 0 && len(record) > 0 && record[0] == resultsHeader[0] {
			continue
		}
		if len(record) < len(resultsHeader) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", i+1, len(resultsHeader), len(record))
		}

		r, err := parseResultRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func parseResultRecord(record []string) (TrialResult, error) {
	var r TrialResult
	var err error

	if r.Ordinal, err = strconv.Atoi(record[0]); err != nil {
		return r, fmt.Errorf("invalid ordinal: %v", err)
	}
	if r.TrialIndex, err = strconv.Atoi(record[1]); err != nil {
		return r, fmt.Errorf("invalid trial index: %v", err)
	}
	if r.Outcome, err = ParseOutcome(record[2]); err != nil {
		return r, err
	}
	if r.ReactionTime, err = strconv.ParseFloat(record[3], 64); err != nil {
		return r, fmt.Errorf("invalid reaction time: %v", err)
	}

	if record[4] != "" && record[5] != "" {
		x, errX := strconv.Atoi(record[4])
		y, errY := strconv.Atoi(record[5])
		if errX != nil || errY != nil {
			return r, fmt.Errorf("invalid click position: %s,%s", record[4], record[5])
		}
		r.Click = &image.Point{X: x, Y: y}
	}

	if record[6] == "" {
		return r, nil
	}
	for _, field := range strings.Split(record[6], ";") {
		rt, verdict, ok := strings.Cut(field, "/")
		if !ok {
			return r, fmt.Errorf("invalid attempt: %q", field)
		}
		v, err := strconv.ParseFloat(rt, 64)
		if err != nil {
			return r, fmt.Errorf("invalid attempt time: %v", err)
		}
		r.Attempts = append(r.Attempts, Attempt{ReactionTime: v, Hit: verdict == "hit"})
	}
	return r, nil
}

// SaveSummary writes the session summary as YAML.
func SaveSummary(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DisplaySplash shows img until a key press or click. Quit aborts.
func DisplaySplash(ctx context.Context, d *Display, img Image) error {
	if img == nil {
		return nil
	}
	d.Input.Flush()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		events := d.Input.Poll()
		if quitRequested(events) {
			return ErrAborted
		}
		for _, ev := range events {
			if ev.Kind == EventKeyDown || ev.Kind == EventPointerDown {
				return nil
			}
		}
		d.render(img)
		d.Clock.Sleep(d.Tick)
	}
}
