package config

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

/*
Validate checks the settings the server cannot run without:
- listen port range
- storage directories
- upload ceilings and concurrency
- engine provider and its credentials
- log level and format
*/
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return errors.New("server.allowed_origins must list at least one origin (use \"*\" for any)")
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}

	if c.Storage.UploadsDir == "" {
		return errors.New("storage.uploads_dir is required")
	}
	if c.Storage.DownloadsDir == "" {
		return errors.New("storage.downloads_dir is required")
	}
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	if c.Transcription.MaxFileSize <= 0 {
		return errors.New("transcription.max_file_size must be positive")
	}
	if c.Transcription.Concurrency < 0 {
		return errors.New("transcription.concurrency must not be negative")
	}
	if c.Transcription.JobTTL < 0 {
		return errors.New("transcription.job_ttl must not be negative")
	}

	switch c.Engine.Provider {
	case ProviderWhisperCpp:
		if c.Engine.Model == "" {
			return errors.New("engine.model is required for the whispercpp provider")
		}
		if c.Engine.WhisperCpp.Threads < 0 {
			return errors.New("engine.whispercpp.threads must not be negative")
		}
	case ProviderOpenAI:
		if c.Engine.OpenAI.APIKey == "" {
			return errors.New("engine.openai.api_key (or OPENAI_API_KEY) is required for the openai provider")
		}
	default:
		return fmt.Errorf("engine.provider %q is not supported (use %q or %q)", c.Engine.Provider, ProviderWhisperCpp, ProviderOpenAI)
	}

	if c.Conversion.MaxFileSize <= 0 {
		return errors.New("conversion.max_file_size must be positive")
	}
	if c.Conversion.Retention < 0 {
		return errors.New("conversion.retention must not be negative")
	}

	if c.Excalidraw.RecentLimit <= 0 {
		return errors.New("excalidraw.recent_limit must be positive")
	}
	if c.Excalidraw.UploadsDir == "" {
		return errors.New("excalidraw.uploads_dir is required")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	return nil
}
