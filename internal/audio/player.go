package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Player decodes, caches, and plays sound files. Safe for concurrent use;
// the speaker is initialized lazily on the first successful decode.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger

	volume      float64 // 0.0 to 1.0
	initialized bool
	sampleRate  beep.SampleRate

	cacheMu sync.Mutex
	cache   map[string]*beep.Buffer
}

// NewPlayer creates a player at full volume.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger:     logger,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// SetVolume sets the playback volume between 0 and 1.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampVolume(volume)
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play plays a sound file. Supports WAV, OGG, and MP3 formats.
func (p *Player) Play(path string) error {
	if path == "" {
		return nil
	}
	path = expandHome(path)

	p.cacheMu.Lock()
	buffer, ok := p.cache[path]
	p.cacheMu.Unlock()

	if !ok {
		var err error
		buffer, err = p.loadSound(path)
		if err != nil {
			return err
		}
		p.cacheMu.Lock()
		p.cache[path] = buffer
		p.cacheMu.Unlock()
	}

	return p.playBuffer(buffer)
}

// Preload decodes a sound file into the cache ahead of playback.
func (p *Player) Preload(path string) error {
	if path == "" {
		return nil
	}
	path = expandHome(path)

	p.cacheMu.Lock()
	_, ok := p.cache[path]
	p.cacheMu.Unlock()
	if ok {
		return nil
	}

	buffer, err := p.loadSound(path)
	if err != nil {
		return err
	}

	p.cacheMu.Lock()
	p.cache[path] = buffer
	p.cacheMu.Unlock()

	p.logger.Debug("preloaded sound", "path", path)
	return nil
}

// loadSound decodes a sound file into a buffer.
func (p *Player) loadSound(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return buffer, nil
}

// ensureInitialized initializes the speaker on first use.
func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	bufferSize := sampleRate.N(100 * time.Millisecond)
	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

// playBuffer streams a buffered sound through the speaker at the current
// volume, resampling if the buffer's rate differs from the device's.
func (p *Player) playBuffer(buffer *beep.Buffer) error {
	if buffer == nil {
		return nil
	}

	p.mu.Lock()
	volume := p.volume
	sampleRate := p.sampleRate
	p.mu.Unlock()

	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())

	if buffer.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buffer.Format().SampleRate, sampleRate, streamer)
	}

	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeExponent(volume),
			Silent:   volume == 0,
		}
	}

	speaker.Play(streamer)
	return nil
}

// InvalidateCache drops the cached buffer for a single path, forcing a
// re-decode on the next play.
func (p *Player) InvalidateCache(path string) {
	path = expandHome(path)
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	delete(p.cache, path)
}

// ClearCache drops all decoded sounds.
func (p *Player) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache = make(map[string]*beep.Buffer)
}

// Cached reports whether a decoded buffer exists for the path.
func (p *Player) Cached(path string) bool {
	path = expandHome(path)
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	_, ok := p.cache[path]
	return ok
}

// Close stops playback and releases the audio device.
func (p *Player) Close() {
	p.ClearCache()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
}

// volumeExponent converts a linear volume (0-1) to the exponent the
// volume effect raises its base 2 to: 0.5 maps to -1, 0.25 to -2.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
