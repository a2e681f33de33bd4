package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toast/internal/config"
	"toast/internal/notify"
)

func writeSound(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestManagerResolvesSounds(t *testing.T) {
	dir := t.TempDir()
	low := writeSound(t, dir, "low.wav")
	critical := writeSound(t, dir, "critical.ogg")

	cfg := config.AudioConfig{
		Enabled: true,
		Volume:  80,
		Sounds: config.SoundFiles{
			Low:      low,
			Normal:   filepath.Join(dir, "missing.wav"),
			Critical: critical,
		},
	}

	m := NewManager(cfg, nil)

	path, ok := m.SoundFor(notify.UrgencyLow)
	assert.True(t, ok)
	assert.Equal(t, low, path)

	// Missing files are dropped at load time.
	_, ok = m.SoundFor(notify.UrgencyNormal)
	assert.False(t, ok)

	path, ok = m.SoundFor(notify.UrgencyCritical)
	assert.True(t, ok)
	assert.Equal(t, critical, path)

	assert.True(t, m.Enabled())
	assert.InDelta(t, 0.8, m.player.Volume(), 0.001)
}

func TestManagerDisabled(t *testing.T) {
	cfg := config.AudioConfig{Enabled: false, Volume: 100}
	m := NewManager(cfg, nil)

	assert.False(t, m.Enabled())

	// No-ops when disabled, even with a sound configured.
	m.PlayForUrgency(notify.UrgencyCritical)
	assert.NoError(t, m.PlayFile("/does/not/exist.wav"))
}

func TestManagerPlayForUrgencySwallowsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeSound(t, dir, "bad.wav") // not decodable

	cfg := config.AudioConfig{
		Enabled: true,
		Volume:  100,
		Sounds:  config.SoundFiles{Normal: bad},
	}
	m := NewManager(cfg, nil)

	// Decode failure is logged, not propagated or panicked.
	m.PlayForUrgency(notify.UrgencyNormal)
	m.PlayForUrgency(notify.UrgencyLow) // nothing configured
}

func TestManagerUpdateConfig(t *testing.T) {
	dir := t.TempDir()
	first := writeSound(t, dir, "first.wav")
	second := writeSound(t, dir, "second.wav")

	m := NewManager(config.AudioConfig{
		Enabled: true,
		Volume:  100,
		Sounds:  config.SoundFiles{Normal: first},
	}, nil)

	path, ok := m.SoundFor(notify.UrgencyNormal)
	require.True(t, ok)
	assert.Equal(t, first, path)

	m.UpdateConfig(config.AudioConfig{
		Enabled: true,
		Volume:  40,
		Sounds:  config.SoundFiles{Normal: second},
	})

	path, ok = m.SoundFor(notify.UrgencyNormal)
	require.True(t, ok)
	assert.Equal(t, second, path)
	assert.InDelta(t, 0.4, m.player.Volume(), 0.001)
}

func TestManagerVolumeClamped(t *testing.T) {
	m := NewManager(config.AudioConfig{Enabled: true, Volume: 250}, nil)
	assert.Equal(t, 1.0, m.player.Volume())
}
