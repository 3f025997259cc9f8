package engine

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// virtualClock advances only when the code under test sleeps.
type virtualClock struct {
	now    time.Duration
	sleeps int
}

func (c *virtualClock) Now() time.Duration { return c.now }

func (c *virtualClock) Sleep(d time.Duration) {
	c.sleeps++
	if d <= 0 {
		d = time.Millisecond
	}
	c.now += d
}

type frame struct {
	img Image
	dst image.Rectangle
}

type recordingSurface struct {
	w, h    int
	pending []frame
	frames  [][]frame
}

func (s *recordingSurface) Size() (int, int) { return s.w, s.h }
func (s *recordingSurface) Clear()           { s.pending = nil }
func (s *recordingSurface) Draw(img Image, dst image.Rectangle) {
	s.pending = append(s.pending, frame{img: img, dst: dst})
}
func (s *recordingSurface) Present() { s.frames = append(s.frames, s.pending) }

// lastImage returns the image of the most recently presented frame.
func (s *recordingSurface) lastImage() Image {
	if len(s.frames) == 0 || len(s.frames[len(s.frames)-1]) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1][0].img
}

type click struct {
	after time.Duration
	pos   image.Point
}

type timedEvent struct {
	at time.Duration
	ev InputEvent
}

// scriptedInput delivers events once the clock reaches their time. Each
// Flush marks a stimulus onset: the next script in trials is scheduled
// relative to it. quitOn maps a flush number (1-based) to the delay of a
// quit request queued after that flush's clicks.
type scriptedInput struct {
	clock   *virtualClock
	queue   []timedEvent
	trials  [][]click
	quitOn  map[int]time.Duration
	flushes int
}

func (in *scriptedInput) at(t time.Duration, ev InputEvent) {
	in.queue = append(in.queue, timedEvent{at: t, ev: ev})
}

func (in *scriptedInput) Poll() []InputEvent {
	var out []InputEvent
	rest := in.queue[:0]
	for _, te := range in.queue {
		if te.at <= in.clock.now {
			ev := te.ev
			if ev.At == 0 && ev.Kind == EventPointerDown {
				ev.At = te.at
			}
			out = append(out, ev)
		} else {
			rest = append(rest, te)
		}
	}
	in.queue = rest
	return out
}

func (in *scriptedInput) Flush() {
	in.Poll()
	in.flushes++
	if len(in.trials) > 0 {
		script := in.trials[0]
		in.trials = in.trials[1:]
		for _, c := range script {
			in.at(in.clock.now+c.after, InputEvent{Kind: EventPointerDown, Pos: c.pos})
		}
	}
	if after, ok := in.quitOn[in.flushes]; ok {
		in.at(in.clock.now+after, InputEvent{Kind: EventQuit})
	}
}

type fakeImage struct {
	w, h int
	name string
}

func (f *fakeImage) Size() (int, int) { return f.w, f.h }

type testRig struct {
	clock   *virtualClock
	surface *recordingSurface
	input   *scriptedInput
	display *Display
}

func newTestRig() *testRig {
	clock := &virtualClock{now: time.Second}
	surface := &recordingSurface{w: 100, h: 100}
	input := &scriptedInput{clock: clock}
	return &testRig{
		clock:   clock,
		surface: surface,
		input:   input,
		display: &Display{
			Surface: surface,
			Input:   input,
			Clock:   clock,
			Scale:   1,
			Tick:    TickFor(60),
		},
	}
}

// grayRaster returns a w x h raster, white inside fg and black elsewhere.
func grayRaster(w, h int, fg image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if image.Pt(x, y).In(fg) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// squareTrial is a 10x10 stimulus whose target covers mask pixels 2..4. On
// the 100x100 test surface it is drawn at (45,45), so (48,48) is a hit.
func squareTrial(t *testing.T, index int) *Trial {
	t.Helper()
	mask, err := NewMask(grayRaster(10, 10, image.Rect(2, 2, 5, 5)), DefaultThreshold)
	require.NoError(t, err)
	return &Trial{
		Index:    index,
		Target:   &fakeImage{w: 10, h: 10, name: "target"},
		Stimulus: &fakeImage{w: 10, h: 10, name: "stimulus"},
		Mask:     mask,
	}
}

var (
	hitPoint  = image.Pt(48, 48)
	missPoint = image.Pt(10, 10)
)

type mapLoader struct {
	trials   map[int]*Trial
	errs     map[int]error
	released []int
}

func (l *mapLoader) LoadTrial(index int) (*Trial, error) {
	if err, ok := l.errs[index]; ok {
		return nil, err
	}
	return l.trials[index], nil
}

func (l *mapLoader) ReleaseTrial(t *Trial) {
	l.released = append(l.released, t.Index)
}

// recordingBridge keeps the notification sequence as strings.
type recordingBridge struct {
	calls  []string
	closed bool
}

func (b *recordingBridge) TrialStart(t *Trial, ordinal int) error {
	b.calls = append(b.calls, "start")
	return nil
}
func (b *recordingBridge) StimulusOnset(*Trial, time.Duration) error {
	b.calls = append(b.calls, "onset")
	return nil
}
func (b *recordingBridge) Response(_ *Trial, a Attempt) error {
	if a.Hit {
		b.calls = append(b.calls, "hit")
	} else {
		b.calls = append(b.calls, "miss")
	}
	return nil
}
func (b *recordingBridge) TrialEnd(r TrialResult) error {
	b.calls = append(b.calls, "end:"+r.Outcome.String())
	return nil
}
func (b *recordingBridge) Close() error {
	b.closed = true
	return nil
}

type countingFeedback struct {
	hits, misses int
}

func (f *countingFeedback) Click(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}
