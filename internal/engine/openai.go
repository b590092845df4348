package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// OpenAIConfig holds the hosted Whisper settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string // "whisper-1"
	BaseURL string // optional, for OpenAI-compatible endpoints
}

// OpenAI transcribes through the hosted Whisper API. It has no hardware
// backend, so Options.ForceCPU is ignored.
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ Engine = (*OpenAI)(nil)

// NewOpenAI creates the hosted adapter.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	log.WithField("model", model).Info("engine: openai provider initialized")

	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, filePath string, opts Options) (string, error) {
	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: filePath,
		Format:   openai.AudioResponseFormatText,
	}
	if opts.Language != "" && opts.Language != "auto" {
		req.Language = opts.Language
	}

	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: openai transcription: %v", ErrEngineFailure, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
