package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
	"go.uber.org/zap"
)

// Run opens the window, plays a whole session and writes its outputs. The
// returned session holds whatever was collected, also when err is ErrAborted.
func Run(ctx context.Context, cfg *Config, log *zap.Logger) (*Session, error) {
	strategy, err := ParseHitStrategy(cfg.Response.Strategy)
	if err != nil {
		return nil, err
	}

	seed := cfg.Session.Seed
	if seed == 0 {
		if seed, err = NewSeed(); err != nil {
			return nil, err
		}
	}
	sess := NewSession(cfg.Session.Trials, seed)
	log = log.With(zap.String("session", sess.ID))
	log.Info("Session created", zap.Int64("seed", seed), zap.Int("trials", len(sess.Order)))

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init: %w", err)
	}
	defer sdl.Quit()

	windowFlags := sdl.WINDOW_RESIZABLE
	if cfg.Display.Fullscreen {
		windowFlags |= sdl.WINDOW_FULLSCREEN
	}

	window, renderer, err := sdl.CreateWindowAndRenderer("visearch", cfg.Display.Width, cfg.Display.Height, windowFlags)
	if err != nil {
		return nil, fmt.Errorf("CreateWindowAndRenderer: %w", err)
	}
	defer window.Destroy()
	defer renderer.Destroy()

	if cfg.Display.VSync {
		renderer.SetVSync(1)
	} else {
		renderer.SetVSync(0)
	}
	if !cfg.Display.ShowCursor {
		sdl.HideCursor()
	}

	hz := cfg.Timing.RefreshHz
	if cfg.Display.DetectRefresh {
		hz = refreshRate(renderer, hz)
	}
	log.Info("Display ready", zap.Float64("refresh_hz", hz), zap.Bool("vsync", cfg.Display.VSync))

	cache := NewResourceCache(renderer)
	defer cache.Destroy()

	loader := &AssetLoader{Layout: cfg.Layout(), Images: cache, Threshold: cfg.Response.Threshold}
	backgrounds, err := loader.LoadBackgrounds()
	if err != nil {
		return nil, err
	}

	clock := SDLClock{VSync: cfg.Display.VSync}
	display := &Display{
		Surface: NewSDLSurface(renderer, cfg.Display.Width, cfg.Display.Height, ParseColor(cfg.Display.Background)),
		Input:   &SDLInput{},
		Clock:   clock,
		Scale:   cfg.Display.Scale,
		Tick:    TickFor(hz),
	}

	feedback, stream := openFeedback(cfg.Feedback, log)
	if stream != nil {
		defer stream.Destroy()
	}

	base := OutputBase(cfg.Session.Participant, sess.ID, time.Now())
	bridge := openBridges(cfg, base, display, log)
	defer func() {
		if err := bridge.Close(); err != nil {
			log.Warn("Closing bridges failed", zap.Error(err))
		}
	}()

	events := NewEventLog(clock.Now())
	seq := &Sequencer{
		Display:            display,
		Timeline:           NewTimeline(display, events, log),
		Capture:            NewCapture(display, cfg.CaptureConfig(), events, feedback, log),
		Loader:             loader,
		Bridge:             bridge,
		Strategy:           strategy,
		Timing:             cfg.Timings(),
		Backgrounds:        backgrounds,
		Log:                log,
		StopOnFirstCorrect: cfg.Session.StopOnFirstCorrect,
		AbortOnAssetError:  cfg.Session.AbortOnAssetError,
	}

	err = DisplaySplash(ctx, display, loadSplash(cache, cfg.Media.StartSplash, log))
	if err == nil {
		err = seq.Run(ctx, sess)
	}
	if err == nil {
		err = DisplaySplash(ctx, display, loadSplash(cache, cfg.Media.EndSplash, log))
	}
	if errors.Is(err, ErrAborted) {
		log.Warn("Session aborted by participant", zap.Int("completed", len(sess.Results)))
	}

	if werr := WriteOutputs(cfg.Output.Dir, base, sess, events, log); werr != nil {
		err = errors.Join(err, werr)
	}
	return sess, err
}

// OutputBase names a session's output files after the participant (or the
// session id when anonymous) and the local start time.
func OutputBase(participant, sessionID string, at time.Time) string {
	name := participant
	if name == "" {
		name = sessionID
	}
	return name + "_" + at.Format("20060102-150405")
}

// WriteOutputs stores the trial results, the event log and the summary under
// dir. A session without reaction times still gets its files.
func WriteOutputs(dir, base string, sess *Session, events *EventLog, log *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	resultsPath := filepath.Join(dir, base+"_results.csv")
	if err := SaveResults(resultsPath, sess.Results); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if events != nil {
		if err := events.Save(filepath.Join(dir, base+"_events.csv")); err != nil {
			return fmt.Errorf("save event log: %w", err)
		}
	}

	sum, err := sess.Summary()
	if errors.Is(err, ErrEmptyResultSet) {
		log.Info("Mean reaction time", zap.String("mean", "no data"))
	} else {
		log.Info("Mean reaction time",
			zap.Float64("mean", sum.MeanReactionTime),
			zap.Int("samples", sum.Samples))
	}
	if err := SaveSummary(filepath.Join(dir, base+"_summary.yaml"), sum); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	log.Info("Results saved", zap.String("path", resultsPath))
	return nil
}

func loadSplash(cache *ResourceCache, path string, log *zap.Logger) Image {
	if path == "" {
		return nil
	}
	im, err := cache.LoadImage(path)
	if err != nil {
		log.Warn("Splash image unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	return im
}

// openFeedback starts the audio stream when at least one feedback sound is
// configured. Sound problems are logged and the session runs silent.
func openFeedback(cfg FeedbackConfig, log *zap.Logger) (Feedback, *sdl.AudioStream) {
	if cfg.CorrectSound == "" && cfg.IncorrectSound == "" {
		return nil, nil
	}

	fb := &ClickFeedback{Mixer: NewAudioMixer()}
	for _, s := range []struct {
		path string
		dst  **SoundResource
	}{
		{cfg.CorrectSound, &fb.Correct},
		{cfg.IncorrectSound, &fb.Incorrect},
	} {
		if s.path == "" {
			continue
		}
		snd, err := LoadSound(s.path)
		if err != nil {
			log.Warn("Feedback sound unavailable", zap.Error(err))
			continue
		}
		*s.dst = snd
	}

	spec := MixSpec
	cb := sdl.NewAudioStreamCallback(fb.Mixer.Callback)
	stream := sdl.AUDIO_DEVICE_DEFAULT_PLAYBACK.OpenAudioDeviceStream(&spec, cb)
	if stream == nil {
		log.Warn("Failed to open audio stream; feedback disabled")
		return nil, nil
	}
	stream.ResumeDevice()
	return fb, stream
}

// openBridges assembles the configured external-device bridges. A device
// that cannot be opened is logged and left out.
func openBridges(cfg *Config, base string, display *Display, log *zap.Logger) Bridge {
	var bridges MultiBridge

	if cfg.Bridge.MessagesFile {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			log.Warn("Message log unavailable", zap.Error(err))
		} else {
			f, err := os.Create(filepath.Join(cfg.Output.Dir, base+"_messages.txt"))
			if err != nil {
				log.Warn("Message log unavailable", zap.Error(err))
			} else {
				mb := NewMessageBridge(f, display.Clock)
				mb.Display = display
				layout := cfg.Layout()
				mb.ImagePath = func(index int) string {
					p := layout.StimulusPath(index)
					if rel, err := filepath.Rel(layout.Root, p); err == nil {
						return filepath.ToSlash(rel)
					}
					return p
				}
				bridges = append(bridges, mb)
			}
		}
	}

	if cfg.Bridge.DLPDevice != "" {
		dlp, err := NewDLPIO8G(cfg.Bridge.DLPDevice, cfg.Bridge.DLPBaud)
		if err != nil {
			log.Warn("Failed to initialize DLP device", zap.String("device", cfg.Bridge.DLPDevice), zap.Error(err))
		} else {
			bridges = append(bridges, NewTriggerBridge(dlp, cfg.Bridge.Lines))
		}
	}

	if len(bridges) == 0 {
		return NopBridge{}
	}
	return bridges
}
