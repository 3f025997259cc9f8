package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBridge(t *testing.T) {
	var buf bytes.Buffer
	clock := &virtualClock{now: 1500 * time.Millisecond}
	b := NewMessageBridge(&buf, clock)
	trial := &Trial{Index: 12}

	require.NoError(t, b.TrialStart(trial, 3))
	clock.now = 4000 * time.Millisecond
	require.NoError(t, b.StimulusOnset(trial, clock.now))
	clock.now = 4789 * time.Millisecond
	a := Attempt{Pos: image.Pt(351, 402), ReactionTime: 0.789, Hit: true}
	require.NoError(t, b.Response(trial, a))
	require.NoError(t, b.TrialEnd(TrialResult{TrialIndex: 12, Outcome: OutcomeCorrect, ReactionTime: 0.789}))

	want := strings.Join([]string{
		"MSG 1500 TRIALID 3",
		"MSG 1500 !V TRIAL_VAR image 12",
		"MSG 4000 image_onset",
		"MSG 4789 click 351 402 0.789 hit",
		"MSG 4789 !V TRIAL_VAR RT 789",
		"MSG 4789 TRIAL_RESULT correct 0.789",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestMessageBridgeOnsetUsesPresentationTime(t *testing.T) {
	var buf bytes.Buffer
	clock := &virtualClock{now: 4020 * time.Millisecond}
	b := NewMessageBridge(&buf, clock)

	require.NoError(t, b.StimulusOnset(&Trial{Index: 5}, 4003*time.Millisecond))
	assert.Equal(t, "MSG 4003 image_onset\n", buf.String())
}

func TestMessageBridgeInterestArea(t *testing.T) {
	var buf bytes.Buffer
	rig := newTestRig()
	b := NewMessageBridge(&buf, rig.clock)
	b.Display = rig.display
	b.ImagePath = func(index int) string { return fmt.Sprintf("stimuli/img%03d.jpg", index) }

	// 10x10 stimulus centered on the 100x100 surface, mask foreground 2..4
	require.NoError(t, b.StimulusOnset(squareTrial(t, 7), 2*time.Second))
	assert.Equal(t, strings.Join([]string{
		"MSG 2000 image_onset",
		"MSG 2000 !V IMGLOAD CENTER stimuli/img007.jpg 50 50 10 10",
		"MSG 2000 !V IAREA RECTANGLE 1 47 47 50 50 target",
	}, "\n")+"\n", buf.String())

	buf.Reset()
	rig.display.Scale = 2
	require.NoError(t, b.StimulusOnset(squareTrial(t, 8), 3*time.Second))
	assert.Contains(t, buf.String(), "!V IMGLOAD CENTER stimuli/img008.jpg 50 50 20 20\n")
	assert.Contains(t, buf.String(), "!V IAREA RECTANGLE 1 44 44 50 50 target\n")
}

func TestMessageBridgeTimeout(t *testing.T) {
	var buf bytes.Buffer
	b := NewMessageBridge(&buf, &virtualClock{})

	require.NoError(t, b.TrialEnd(TrialResult{Outcome: OutcomeTimeout, ReactionTime: 20}))
	assert.Equal(t, "MSG 0 time_out\nMSG 0 !V TRIAL_VAR RT 20000\nMSG 0 TRIAL_RESULT timeout 20.000\n", buf.String())
}

type failingBridge struct {
	NopBridge
	err error
}

func (f failingBridge) TrialStart(*Trial, int) error { return f.err }

func TestMultiBridge(t *testing.T) {
	rec := &recordingBridge{}
	boom := errors.New("boom")
	m := MultiBridge{failingBridge{err: boom}, rec}

	err := m.TrialStart(&Trial{}, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start"}, rec.calls, "later bridges still notified")

	require.NoError(t, m.Close())
	assert.True(t, rec.closed)
}
