package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"andretools/internal/config"
	"andretools/internal/engine"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Storage.UploadsDir = filepath.Join(root, "uploads")
	cfg.Storage.DownloadsDir = filepath.Join(root, "downloads")
	cfg.Storage.DataDir = filepath.Join(root, "data")
	cfg.Excalidraw.UploadsDir = filepath.Join(root, "uploads", "excalidraw")
	return cfg
}

func TestNewApp_WiresComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Language = "en"
	cfg.Transcription.Concurrency = 3

	a, err := NewApp(cfg)
	require.NoError(t, err)

	assert.NotNil(t, a.Jobs)
	assert.NotNil(t, a.Converter)
	assert.NotNil(t, a.Excalidraw)
	assert.NotNil(t, a.Janitor)
	assert.Equal(t, "whispercpp", a.Engine.Name())
	assert.Equal(t, engine.Options{Model: "small", Language: "en"}, a.EngineOptions)
	assert.Equal(t, 3, a.Runner.Concurrency())
	assert.DirExists(t, cfg.Storage.UploadsDir)
	assert.DirExists(t, cfg.Excalidraw.UploadsDir)
	assert.Equal(t, cfg.Storage.DownloadsDir, a.Converter.OutputDir())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNewEngine(t *testing.T) {
	cfg := testConfig(t)

	cfg.Engine.Provider = config.ProviderOpenAI
	cfg.Engine.OpenAI.APIKey = ""
	_, err := NewEngine(cfg)
	assert.Error(t, err)

	cfg.Engine.OpenAI.APIKey = "sk-test"
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", eng.Name())

	cfg.Engine.Provider = "vosk"
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestNewApp_BadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.SweepSchedule = "whenever"
	_, err := NewApp(cfg)
	assert.Error(t, err)
}
