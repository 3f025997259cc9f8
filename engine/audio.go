package engine

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/Zyko0/go-sdl3/sdl"
)

const (
	MaxActiveSounds   = 16
	AudioScratchBytes = 4096
)

// MixSpec is the format every feedback sound is converted to.
var MixSpec = sdl.AudioSpec{Format: sdl.AUDIO_S16, Channels: 2, Freq: 44100}

type SoundResource struct {
	Data []byte
	Spec sdl.AudioSpec
}

// LoadSound reads a WAV file and converts it to MixSpec.
func LoadSound(path string) (*SoundResource, error) {
	spec := &sdl.AudioSpec{}
	data, err := sdl.LoadWAV(path, spec)
	if err != nil {
		return nil, fmt.Errorf("load sound %s: %w", path, err)
	}
	if spec.Format == MixSpec.Format && spec.Channels == MixSpec.Channels && spec.Freq == MixSpec.Freq {
		return &SoundResource{Data: data, Spec: *spec}, nil
	}

	target := MixSpec
	converted, err := sdl.ConvertAudioSamples(spec, data, &target)
	if err != nil {
		return nil, fmt.Errorf("convert sound %s: %w", path, err)
	}
	return &SoundResource{Data: converted, Spec: target}, nil
}

type ActiveSound struct {
	Resource *SoundResource
	PlayPos  uint32
	Active   bool
}

// AudioMixer sums up to MaxActiveSounds S16 streams. Callback runs on SDL's
// audio thread; Play runs on the control goroutine.
type AudioMixer struct {
	Slots   [MaxActiveSounds]ActiveSound
	Mutex   sync.Mutex
	Scratch []byte
}

func NewAudioMixer() *AudioMixer {
	return &AudioMixer{
		Scratch: make([]byte, AudioScratchBytes),
	}
}

func (m *AudioMixer) Callback(stream *sdl.AudioStream, additionalAmount, totalAmount int32) {
	remaining := int(additionalAmount)
	for remaining > 0 {
		chunk := min(remaining, AudioScratchBytes)
		clear(m.Scratch[:chunk])

		m.Mutex.Lock()
		m.mix(m.Scratch[:chunk])
		m.Mutex.Unlock()

		stream.PutData(m.Scratch[:chunk])
		remaining -= chunk
	}
}

// mix adds every active sound into buf, saturating at the S16 range.
func (m *AudioMixer) mix(buf []byte) {
	chunk := len(buf)
	if chunk < 2 {
		return
	}
	dst := unsafe.Slice((*int16)(unsafe.Pointer(&buf[0])), chunk/2)
	for i := 0; i < MaxActiveSounds; i++ {
		s := &m.Slots[i]
		if !s.Active {
			continue
		}

		soundRemaining := uint32(len(s.Resource.Data)) - s.PlayPos
		toMix := min(uint32(chunk), soundRemaining)
		if toMix >= 2 {
			src := unsafe.Slice((*int16)(unsafe.Pointer(&s.Resource.Data[s.PlayPos])), toMix/2)
			for j := range src {
				val := int32(dst[j]) + int32(src[j])
				if val > 32767 {
					val = 32767
				} else if val < -32768 {
					val = -32768
				}
				dst[j] = int16(val)
			}
		}

		s.PlayPos += toMix
		if s.PlayPos >= uint32(len(s.Resource.Data)) {
			s.Active = false
		}
	}
}

func (m *AudioMixer) Play(res *SoundResource) bool {
	if res == nil || len(res.Data) == 0 {
		return false
	}
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for i := 0; i < MaxActiveSounds; i++ {
		if !m.Slots[i].Active {
			m.Slots[i].Resource = res
			m.Slots[i].PlayPos = 0
			m.Slots[i].Active = true
			return true
		}
	}
	return false
}

// ClickFeedback plays one sound for hits and another for misses. Either may
// be nil.
type ClickFeedback struct {
	Mixer     *AudioMixer
	Correct   *SoundResource
	Incorrect *SoundResource
}

func (f *ClickFeedback) Click(hit bool) {
	if hit {
		f.Mixer.Play(f.Correct)
	} else {
		f.Mixer.Play(f.Incorrect)
	}
}
