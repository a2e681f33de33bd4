package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeExponent(t *testing.T) {
	assert.InDelta(t, 0.0, volumeExponent(1.0), 0.001)
	assert.InDelta(t, -1.0, volumeExponent(0.5), 0.001)
	assert.InDelta(t, -2.0, volumeExponent(0.25), 0.001)
	assert.Equal(t, -10.0, volumeExponent(0))
	assert.Equal(t, -10.0, volumeExponent(-0.5))
}

func TestPlayerSetVolumeClamps(t *testing.T) {
	p := NewPlayer(nil)
	assert.Equal(t, 1.0, p.Volume())

	p.SetVolume(0.5)
	assert.Equal(t, 0.5, p.Volume())

	p.SetVolume(1.5)
	assert.Equal(t, 1.0, p.Volume())

	p.SetVolume(-0.2)
	assert.Equal(t, 0.0, p.Volume())
}

func TestPlayerPlayEmptyPath(t *testing.T) {
	p := NewPlayer(nil)
	assert.NoError(t, p.Play(""))
	assert.NoError(t, p.Preload(""))
}

func TestPlayerPlayMissingFile(t *testing.T) {
	p := NewPlayer(nil)
	err := p.Play(filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open sound file")
}

func TestPlayerPlayUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sound.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	p := NewPlayer(nil)
	err := p.Play(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format: .txt")
}

func TestPlayerPlayCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sound.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav"), 0o644))

	p := NewPlayer(nil)
	err := p.Play(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode sound")
}

func TestPlayerCacheInvalidation(t *testing.T) {
	p := NewPlayer(nil)

	// Seed the cache directly; decoding needs an audio device.
	p.cacheMu.Lock()
	p.cache["/tmp/a.wav"] = nil
	p.cache["/tmp/b.wav"] = nil
	p.cacheMu.Unlock()

	assert.True(t, p.Cached("/tmp/a.wav"))
	assert.True(t, p.Cached("/tmp/b.wav"))

	p.InvalidateCache("/tmp/a.wav")
	assert.False(t, p.Cached("/tmp/a.wav"))
	assert.True(t, p.Cached("/tmp/b.wav"))

	p.ClearCache()
	assert.False(t, p.Cached("/tmp/b.wav"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "sounds", "ding.wav"), expandHome("~/sounds/ding.wav"))
	assert.Equal(t, "/usr/share/sounds/bell.ogg", expandHome("/usr/share/sounds/bell.ogg"))
	assert.Equal(t, "relative.wav", expandHome("relative.wav"))
}
