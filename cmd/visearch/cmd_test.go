package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visearch/engine"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// inTempDir runs the command from an empty directory so no visearch.yaml is
// picked up and logs stay out of the source tree.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	summarizeFormat = "table"
	return dir
}

func TestOrderIsReproducible(t *testing.T) {
	inTempDir(t)

	first, err := executeCommand(newRootCommand(), "order", "--seed", "42", "--trials", "10")
	require.NoError(t, err)
	second, err := executeCommand(newRootCommand(), "order", "--seed", "42", "--trials", "10")
	require.NoError(t, err)

	assert.Contains(t, first, "seed: 42")
	assert.Equal(t, first, second)

	lines := strings.Split(strings.TrimSpace(first), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	assert.Len(t, fields, 10)
	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, fields)
}

func TestOrderRejectsZeroTrials(t *testing.T) {
	inTempDir(t)
	_, err := executeCommand(newRootCommand(), "order", "--trials", "-3")
	assert.Error(t, err)
}

func writeResults(t *testing.T, dir string, results []engine.TrialResult) string {
	t.Helper()
	path := filepath.Join(dir, "p01_results.csv")
	require.NoError(t, engine.SaveResults(path, results))
	return path
}

func TestSummarize(t *testing.T) {
	dir := inTempDir(t)
	path := writeResults(t, dir, []engine.TrialResult{
		{Ordinal: 1, TrialIndex: 5, Outcome: engine.OutcomeCorrect, ReactionTime: 0.5,
			Attempts: []engine.Attempt{{ReactionTime: 0.5, Hit: true}}},
		{Ordinal: 2, TrialIndex: 8, Outcome: engine.OutcomeCorrect, ReactionTime: 1.2,
			Attempts: []engine.Attempt{{ReactionTime: 1.2, Hit: true}}},
		{Ordinal: 3, TrialIndex: 2, Outcome: engine.OutcomeTimeout, ReactionTime: 20},
	})

	out, err := executeCommand(newRootCommand(), "summarize", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Trials:     3")
	assert.Contains(t, out, "Timeouts:   1")
	assert.Contains(t, out, "Mean RT:    7.2333s")
}

func TestSummarizeYAML(t *testing.T) {
	dir := inTempDir(t)
	path := writeResults(t, dir, []engine.TrialResult{
		{Ordinal: 1, TrialIndex: 1, Outcome: engine.OutcomeTimeout, ReactionTime: 20},
	})

	out, err := executeCommand(newRootCommand(), "summarize", "-f", "yaml", path)
	require.NoError(t, err)
	assert.Contains(t, out, "mean_reaction_time: 20")
	assert.Contains(t, out, "timeouts: 1")
}

func TestSummarizeNoData(t *testing.T) {
	dir := inTempDir(t)
	path := writeResults(t, dir, nil)

	out, err := executeCommand(newRootCommand(), "summarize", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Mean RT:    no data")
}

func TestSummarizeBadFormat(t *testing.T) {
	dir := inTempDir(t)
	path := writeResults(t, dir, nil)

	_, err := executeCommand(newRootCommand(), "summarize", "--format", "xml", path)
	assert.ErrorContains(t, err, "unsupported format")
}

func TestSummarizeMissingFile(t *testing.T) {
	inTempDir(t)
	_, err := executeCommand(newRootCommand(), "summarize", "nope.csv")
	assert.ErrorContains(t, err, "failed to load")
}

func TestReport(t *testing.T) {
	dir := inTempDir(t)
	path := writeResults(t, dir, []engine.TrialResult{
		{Ordinal: 1, TrialIndex: 1, Outcome: engine.OutcomeCorrect, ReactionTime: 0.7,
			Attempts: []engine.Attempt{{ReactionTime: 0.7, Hit: true}}},
	})

	out, err := executeCommand(newRootCommand(), "report", path)
	require.NoError(t, err)

	html := filepath.Join(dir, "p01_results.html")
	assert.Contains(t, out, html)
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Reaction Time per Trial")
}

func TestCheckReportsMissingMedia(t *testing.T) {
	inTempDir(t)
	out, err := executeCommand(newRootCommand(), "check", "--config", writeConfig(t, "session:\n  trials: 2\n"))
	assert.Error(t, err)
	assert.Contains(t, out, "missing asset")
}

func TestConfigFlagRejectsBadFile(t *testing.T) {
	inTempDir(t)
	_, err := executeCommand(newRootCommand(), "order", "--config", writeConfig(t, "response:\n  strategy: lasso\n"))
	assert.ErrorContains(t, err, "unknown hit strategy")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "visearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
