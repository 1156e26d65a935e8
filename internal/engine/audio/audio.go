// Package audio plays background music and interface sounds.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultSampleRate is the speaker sample rate.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrNotInitialized is returned when playback is requested before Init.
var ErrNotInitialized = errors.New("audio not initialized")

// Manager owns the speaker, one music track and a mixer for short effects.
type Manager struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate

	music       beep.StreamSeekCloser
	musicCtrl   *beep.Ctrl
	musicVolume *effects.Volume
	musicName   string
	musicDone   *atomic.Bool

	volume float64
	muted  bool

	effects *beep.Mixer
}

// New creates a manager at volume 0.7.
func New() *Manager {
	return &Manager{
		volume:  0.7,
		effects: &beep.Mixer{},
	}
}

// Init opens the speaker.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.sampleRate = DefaultSampleRate
	if err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(m.effects)

	m.initialized = true
	return nil
}

// Close stops playback and releases the current track.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopMusic()
	speaker.Clear()
	m.initialized = false
}

// Initialized reports whether Init succeeded.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SetVolume sets the volume in [0, 1]; values outside are clamped.
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clamp(vol, 0, 1)
	m.applyVolume()
}

// Volume returns the current volume.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// SetMuted silences or restores all output.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.applyVolume()
}

// ToggleMute flips the mute state and returns the new value.
func (m *Manager) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = !m.muted
	m.applyVolume()
	return m.muted
}

// Muted reports the mute state.
func (m *Manager) Muted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.muted
}

func (m *Manager) effectiveVolume() float64 {
	if m.muted {
		return 0
	}
	return m.volume
}

func (m *Manager) applyVolume() {
	if m.musicVolume == nil {
		return
	}
	speaker.Lock()
	vol := m.effectiveVolume()
	m.musicVolume.Silent = vol <= 0
	m.musicVolume.Volume = volumeToDb(vol)
	speaker.Unlock()
}

// volumeToDb maps a linear [0, 1] volume to the decibel scale used by
// effects.Volume with Base 2.
func volumeToDb(vol float64) float64 {
	if vol <= 0 {
		return -100
	}
	return 20 * math.Log10(vol)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PlayMusic replaces the current track with WAV data.
func (m *Manager) PlayMusic(data []byte, name string, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	m.stopMusic()

	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}

	var s beep.Streamer = &looper{source: streamer, loop: loop}
	if format.SampleRate != m.sampleRate {
		s = beep.Resample(4, format.SampleRate, m.sampleRate, s)
	}

	m.musicCtrl = &beep.Ctrl{Streamer: s}
	m.musicVolume = &effects.Volume{Streamer: m.musicCtrl, Base: 2}
	m.music = streamer
	m.musicName = name
	m.applyVolume()

	// The callback runs on the speaker goroutine with the speaker locked,
	// so it must not take m.mu.
	done := &atomic.Bool{}
	m.musicDone = done
	speaker.Play(beep.Seq(m.musicVolume, beep.Callback(func() {
		done.Store(true)
	})))
	return nil
}

// StopMusic stops and releases the current track.
func (m *Manager) StopMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMusic()
}

func (m *Manager) stopMusic() {
	if m.musicCtrl != nil {
		speaker.Lock()
		m.musicCtrl.Paused = true
		m.musicCtrl.Streamer = nil
		speaker.Unlock()
	}
	if m.music != nil {
		m.music.Close()
	}
	m.music = nil
	m.musicCtrl = nil
	m.musicVolume = nil
	m.musicName = ""
	m.musicDone = nil
}

// MusicPlaying reports whether a track is playing.
func (m *Manager) MusicPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.musicDone != nil && !m.musicDone.Load()
}

// MusicName returns the name passed to PlayMusic.
func (m *Manager) MusicName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.musicName
}

// PlayEffect mixes a short WAV sound over the music.
func (m *Manager) PlayEffect(data []byte) error {
	m.mu.RLock()
	initialized := m.initialized
	vol := m.effectiveVolume()
	m.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}
	if vol <= 0 {
		return nil
	}

	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != m.sampleRate {
		s = beep.Resample(4, format.SampleRate, m.sampleRate, s)
	}

	speaker.Lock()
	m.effects.Add(&effects.Volume{Streamer: s, Base: 2, Volume: volumeToDb(vol)})
	speaker.Unlock()
	return nil
}

// looper rewinds its source at end of stream when loop is set.
type looper struct {
	source beep.StreamSeeker
	loop   bool
}

func (l *looper) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.source.Stream(samples[filled:])
		filled += n
		if ok {
			continue
		}
		if !l.loop || l.source.Len() == 0 {
			return filled, filled > 0
		}
		if err := l.source.Seek(0); err != nil {
			return filled, filled > 0
		}
	}
	return filled, true
}

func (l *looper) Err() error {
	return l.source.Err()
}
