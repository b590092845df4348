package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. ANDRETOOLS_ENGINE_MODEL.
const EnvPrefix = "ANDRETOOLS"

const (
	MiB = 1 << 20

	ProviderWhisperCpp = "whispercpp"
	ProviderOpenAI     = "openai"
)

type Config struct {
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Storage struct {
		UploadsDir   string `mapstructure:"uploads_dir"`
		DownloadsDir string `mapstructure:"downloads_dir"`
		DataDir      string `mapstructure:"data_dir"`
	} `mapstructure:"storage"`

	Transcription struct {
		MaxFileSize   int64         `mapstructure:"max_file_size"`
		Concurrency   int           `mapstructure:"concurrency"` // 0 = unbounded
		JobTTL        time.Duration `mapstructure:"job_ttl"`     // 0 = keep forever
		SweepSchedule string        `mapstructure:"sweep_schedule"`
	} `mapstructure:"transcription"`

	Engine struct {
		Provider string `mapstructure:"provider"` // "whispercpp" or "openai"
		Model    string `mapstructure:"model"`
		Language string `mapstructure:"language"`
		ForceCPU bool   `mapstructure:"force_cpu"`

		WhisperCpp struct {
			Binary    string `mapstructure:"binary"`
			FFmpeg    string `mapstructure:"ffmpeg"`
			ModelsDir string `mapstructure:"models_dir"`
			Threads   int    `mapstructure:"threads"`
		} `mapstructure:"whispercpp"`

		OpenAI struct {
			APIKey  string `mapstructure:"api_key"`
			Model   string `mapstructure:"model"`
			BaseURL string `mapstructure:"base_url"`
		} `mapstructure:"openai"`
	} `mapstructure:"engine"`

	Conversion struct {
		MaxFileSize int64         `mapstructure:"max_file_size"`
		Retention   time.Duration `mapstructure:"retention"` // 0 = keep forever
		FFmpeg      string        `mapstructure:"ffmpeg"`
	} `mapstructure:"conversion"`

	Excalidraw struct {
		RecentLimit int    `mapstructure:"recent_limit"`
		Browser     string `mapstructure:"browser"` // preferred command, URL appended
		UploadsDir  string `mapstructure:"uploads_dir"`
	} `mapstructure:"excalidraw"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"log"`
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("storage.downloads_dir", "downloads")
	v.SetDefault("storage.data_dir", "data")

	v.SetDefault("transcription.max_file_size", 100*MiB)
	v.SetDefault("transcription.concurrency", 2)
	v.SetDefault("transcription.job_ttl", time.Hour)
	v.SetDefault("transcription.sweep_schedule", "@every 1m")

	v.SetDefault("engine.provider", ProviderWhisperCpp)
	v.SetDefault("engine.model", "small")
	v.SetDefault("engine.language", "auto")
	v.SetDefault("engine.force_cpu", false)
	v.SetDefault("engine.whispercpp.binary", "whisper-cli")
	v.SetDefault("engine.whispercpp.ffmpeg", "ffmpeg")
	v.SetDefault("engine.whispercpp.models_dir", "models")
	v.SetDefault("engine.whispercpp.threads", 0)
	v.SetDefault("engine.openai.api_key", "")
	v.SetDefault("engine.openai.model", "whisper-1")
	v.SetDefault("engine.openai.base_url", "")

	v.SetDefault("conversion.max_file_size", 500*MiB)
	v.SetDefault("conversion.retention", 5*time.Minute)
	v.SetDefault("conversion.ffmpeg", "ffmpeg")

	v.SetDefault("excalidraw.recent_limit", 10)
	v.SetDefault("excalidraw.browser", "")
	v.SetDefault("excalidraw.uploads_dir", "uploads/excalidraw")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads configFile, or config.yaml from the working directory when
// configFile is empty. A missing default file is not an error; defaults and
// environment variables still apply.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names kept for compatibility with existing deployments.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("engine.openai.api_key", EnvPrefix+"_ENGINE_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &config, nil
}
