package engine

import (
	"image"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
)

// SDLSurface draws on an SDL renderer of fixed logical size.
type SDLSurface struct {
	renderer *sdl.Renderer
	w, h     int
	bg       sdl.Color
}

func NewSDLSurface(renderer *sdl.Renderer, w, h int, bg sdl.Color) *SDLSurface {
	return &SDLSurface{renderer: renderer, w: w, h: h, bg: bg}
}

func (s *SDLSurface) Size() (w, h int) { return s.w, s.h }

func (s *SDLSurface) Clear() {
	s.renderer.SetDrawColor(s.bg.R, s.bg.G, s.bg.B, s.bg.A)
	s.renderer.Clear()
}

func (s *SDLSurface) Draw(im Image, dst image.Rectangle) {
	r, ok := im.(*Resource)
	if !ok || r.Texture == nil {
		return
	}
	dr := sdl.FRect{
		X: float32(dst.Min.X),
		Y: float32(dst.Min.Y),
		W: float32(dst.Dx()),
		H: float32(dst.Dy()),
	}
	s.renderer.RenderTexture(r.Texture, nil, &dr)
}

func (s *SDLSurface) Present() {
	s.renderer.Present()
}

// SDLInput reads the SDL event queue. Escape and window close both count as
// quit. A quit drained by Flush is kept for the next Poll.
type SDLInput struct {
	pendingQuit bool
}

func (in *SDLInput) Poll() []InputEvent {
	var out []InputEvent
	if in.pendingQuit {
		in.pendingQuit = false
		out = append(out, InputEvent{Kind: EventQuit})
	}

	for {
		var ev sdl.Event
		if !sdl.PollEvent(&ev) {
			break
		}
		switch ev.Type {
		case sdl.EVENT_QUIT:
			out = append(out, InputEvent{Kind: EventQuit})
		case sdl.EVENT_KEY_DOWN:
			ke := ev.KeyboardEvent()
			if ke.Key == sdl.K_ESCAPE {
				out = append(out, InputEvent{Kind: EventQuit})
			} else {
				out = append(out, InputEvent{
					Kind: EventKeyDown,
					Key:  ke.Key.KeyName(),
					At:   time.Duration(ke.Timestamp),
				})
			}
		case sdl.EVENT_MOUSE_BUTTON_DOWN:
			me := ev.MouseButtonEvent()
			out = append(out, InputEvent{
				Kind: EventPointerDown,
				Pos:  image.Pt(int(me.X), int(me.Y)),
				At:   time.Duration(me.Timestamp),
			})
		}
	}
	return out
}

func (in *SDLInput) Flush() {
	if quitRequested(in.Poll()) {
		in.pendingQuit = true
	}
}

// SDLClock reads SDL ticks. With VSync the renderer's Present already paces
// the loop to the display refresh, so Sleep only yields.
type SDLClock struct {
	VSync bool
}

func (SDLClock) Now() time.Duration {
	return time.Duration(sdl.Ticks()) * time.Millisecond
}

func (c SDLClock) Sleep(d time.Duration) {
	ms := d.Milliseconds()
	if c.VSync || ms < 1 {
		ms = 1
	}
	sdl.Delay(uint32(ms))
}

// refreshRate returns the refresh rate of the window's display, or fallback.
func refreshRate(renderer *sdl.Renderer, fallback float64) float64 {
	win, err := renderer.Window()
	if err != nil {
		return fallback
	}
	display := sdl.GetDisplayForWindow(win)
	mode, err := display.CurrentDisplayMode()
	if err == nil && mode.RefreshRate > 0 {
		return float64(mode.RefreshRate)
	}
	return fallback
}
