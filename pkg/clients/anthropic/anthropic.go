package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	defaultModel   = "claude-3-haiku-20240307"
	maxTokens      = 512
)

const assistantPrompt = `You are the WhatsApp receptionist of %s, a dental clinic.
Answer patient questions briefly and politely, in the same language the patient used (Arabic or English).
Use at most three short sentences. Never invent prices or medical diagnoses; invite the patient to book a visit instead.
If the patient wants to book, tell them to send the word "حجز" or "book".`

const namePrompt = `You check whether a text is a plausible human personal name (Arabic or Latin script, one to four words).
Reply with exactly one word: VALID or INVALID.`

const fallbackClinicName = "the clinic"

// ClinicNamer supplies the clinic name used in the assistant prompt.
type ClinicNamer interface {
	ClinicName() string
}

// Client answers free-form questions and performs soft name validation.
type Client struct {
	httpClient *resty.Client
	model      string
	clinic     ClinicNamer
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.httpClient.SetBaseURL(strings.TrimSuffix(url, "/"))
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithClinic names the clinic in the assistant prompt. The name is read on
// every request, so refreshed settings reach the prompt.
func WithClinic(src ClinicNamer) Option {
	return func(c *Client) {
		if src != nil {
			c.clinic = src
		}
	}
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	c := &Client{httpClient: client, model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Ask answers a single patient question. No conversation memory is kept.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	reply, err := c.complete(ctx, fmt.Sprintf(assistantPrompt, c.clinicName()), question, maxTokens)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// ValidateName reports whether text looks like a personal name.
func (c *Client) ValidateName(ctx context.Context, name string) (bool, error) {
	reply, err := c.complete(ctx, namePrompt, name, 5)
	if err != nil {
		return false, err
	}
	verdict := strings.ToUpper(strings.Trim(reply, " \n\t.`"))
	switch {
	case strings.HasPrefix(verdict, "INVALID"):
		return false, nil
	case strings.HasPrefix(verdict, "VALID"):
		return true, nil
	default:
		return false, fmt.Errorf("unexpected name verdict %q", reply)
	}
}

func (c *Client) clinicName() string {
	if c.clinic == nil {
		return fallbackClinicName
	}
	if name := c.clinic.ClinicName(); name != "" {
		return name
	}
	return fallbackClinicName
}

func (c *Client) complete(ctx context.Context, system, input string, tokens int) (string, error) {
	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: tokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: input}},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic api error: %s", resp.String())
	}
	if len(respBody.Content) == 0 {
		return "", fmt.Errorf("empty response from ai")
	}

	return strings.TrimSpace(respBody.Content[0].Text), nil
}
