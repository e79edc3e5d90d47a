package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smileclinic/whatsbot/internal/config"
)

// Client turns reply text into OGG/Opus voice notes.
type Client struct {
	httpClient *resty.Client
	voiceID    string
	modelID    string
}

// NewClient builds an ElevenLabs client from configuration.
func NewClient(cfg config.VoiceConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("xi-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &Client{httpClient: httpClient, voiceID: cfg.VoiceID, modelID: cfg.ModelID}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns OGG/Opus audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("synthesize: empty text")
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/ogg").
		SetQueryParam("output_format", "opus_48000_64").
		SetBody(synthesisRequest{
			Text:          text,
			ModelID:       c.modelID,
			VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		}).
		Post(fmt.Sprintf("/v1/text-to-speech/%s", c.voiceID))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesize: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("elevenlabs api error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if len(resp.Body()) == 0 {
		return nil, errors.New("elevenlabs returned empty audio")
	}

	return resp.Body(), nil
}
