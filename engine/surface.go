package engine

import (
	"image"
	"time"
)

// Surface is the fixed-size canvas the trial engine draws on.
type Surface interface {
	Size() (w, h int)
	Clear()
	Draw(img Image, dst image.Rectangle)
	Present()
}

type EventKind int

const (
	EventPointerDown EventKind = iota + 1
	EventKeyDown
	EventQuit
)

// InputEvent is one discrete event from the input source. At is measured on
// the same clock as Clock.Now.
type InputEvent struct {
	Kind EventKind
	Pos  image.Point
	Key  string
	At   time.Duration
}

// InputSource is drained once per tick by the polling loops.
type InputSource interface {
	Poll() []InputEvent
	Flush()
}

// Clock is a monotonic time source. Sleep suspends the control loop until the
// next tick.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// Display bundles the collaborators owned by the control goroutine.
type Display struct {
	Surface Surface
	Input   InputSource
	Clock   Clock
	Scale   float64
	Tick    time.Duration
}

// TickFor returns the polling cadence for a refresh rate in Hz.
func TickFor(refreshHz float64) time.Duration {
	if refreshHz <= 0 {
		refreshHz = 60
	}
	return time.Duration(float64(time.Second) / refreshHz)
}

// Centered returns where img lands when drawn centered on the surface.
func (d *Display) Centered(img Image) Placement {
	sw, sh := d.Surface.Size()
	w, h := img.Size()
	s := d.Scale
	if s <= 0 {
		s = 1
	}
	return Placement{
		Origin: image.Pt(int((float64(sw)-float64(w)*s)/2.0), int((float64(sh)-float64(h)*s)/2.0)),
		Scale:  s,
	}
}

func (d *Display) destRect(img Image) image.Rectangle {
	p := d.Centered(img)
	w, h := img.Size()
	return image.Rect(p.Origin.X, p.Origin.Y,
		p.Origin.X+int(float64(w)*p.Scale), p.Origin.Y+int(float64(h)*p.Scale))
}

// render clears the surface, draws img centered and presents the frame.
func (d *Display) render(img Image) {
	d.Surface.Clear()
	if img != nil {
		d.Surface.Draw(img, d.destRect(img))
	}
	d.Surface.Present()
}
