package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfigFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func startWatcher(t *testing.T) (string, *Provider) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "engine:\n  limits:\n    max_suggestions: 10\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	provider, err := NewProvider(cfg.Engine, zap.NewNop())
	require.NoError(t, err)

	w, err := NewWatcher(path, provider, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	return path, provider
}

func TestWatcher_PublishesOnFileChange(t *testing.T) {
	path, provider := startWatcher(t)
	require.Equal(t, uint64(1), provider.Version())

	writeConfigFile(t, path, "engine:\n  limits:\n    max_suggestions: 25\n")

	require.Eventually(t, func() bool {
		return provider.GetAlgorithmConfig().Limits.MaxSuggestions == 25
	}, 3*time.Second, 50*time.Millisecond, "file change must publish a new snapshot")
	assert.Equal(t, uint64(2), provider.Version())
}

func TestWatcher_InvalidChangeKeepsPreviousSnapshot(t *testing.T) {
	path, provider := startWatcher(t)

	writeConfigFile(t, path, "engine:\n  limits:\n    max_suggestions: -5\n")

	// Past the debounce window plus reload slack.
	time.Sleep(700 * time.Millisecond)

	snap := provider.GetAlgorithmConfig()
	assert.Equal(t, 10, snap.Limits.MaxSuggestions)
	assert.Equal(t, uint64(1), provider.Version(), "a rejected reload must not publish")
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	path, provider := startWatcher(t)

	// Several rapid saves collapse into one reload of the final contents.
	for i := 0; i < 5; i++ {
		writeConfigFile(t, path, "engine:\n  limits:\n    max_suggestions: 25\n")
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return provider.GetAlgorithmConfig().Limits.MaxSuggestions == 25
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, uint64(2), provider.Version())
}

func TestWatcher_StopIsClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "engine:\n  limits:\n    max_suggestions: 10\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	provider, err := NewProvider(cfg.Engine, zap.NewNop())
	require.NoError(t, err)

	w, err := NewWatcher(path, provider, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start())

	assert.NoError(t, w.Stop())
}

func TestWatcher_IgnoresEditorArtifacts(t *testing.T) {
	w := &Watcher{configPath: "/etc/platewise/config.yaml"}

	assert.True(t, w.isConfigFile("/etc/platewise/config.yaml"))
	assert.True(t, w.isConfigFile("config.yaml"))
	assert.False(t, w.isConfigFile("/etc/platewise/config.yaml~"))
	assert.False(t, w.isConfigFile("/etc/platewise/config.yaml.tmp"))
	assert.False(t, w.isConfigFile("/etc/platewise/other.yaml"))
}
