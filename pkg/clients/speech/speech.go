package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/smileclinic/whatsbot/internal/config"
)

// WhatsApp voice notes are OGG/Opus at 16 kHz.
const voiceNoteSampleRate = 16000

// Client transcribes WhatsApp voice notes with Google Cloud Speech.
type Client struct {
	client       *gspeech.Client
	languageCode string
	altLanguages []string
}

// NewClient dials Google Cloud Speech using the configured service account file.
func NewClient(ctx context.Context, cfg config.SpeechConfig) (*Client, error) {
	if cfg.CredentialsPath == "" {
		return nil, errors.New("speech credentials path is required")
	}
	client, err := gspeech.NewClient(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Client{client: client, languageCode: cfg.LanguageCode, altLanguages: cfg.AltLanguages}, nil
}

// Transcribe returns the best transcript for audio, or "" when nothing was recognized.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("transcribe: empty audio")
	}

	resp, err := c.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: RecognitionConfig(c.languageCode, c.altLanguages),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	return joinTranscripts(resp.GetResults()), nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// RecognitionConfig is the request config used for WhatsApp voice notes.
func RecognitionConfig(languageCode string, alt []string) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_OGG_OPUS,
		SampleRateHertz:            voiceNoteSampleRate,
		LanguageCode:               languageCode,
		AlternativeLanguageCodes:   alt,
		EnableAutomaticPunctuation: true,
	}
}

func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
