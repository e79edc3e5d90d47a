package gemini

import (
	"context"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultModel       = "gemini-1.5-flash"
	fallbackClinicName = "the clinic"
)

const assistantPrompt = `You are the WhatsApp receptionist of %s, a dental clinic.
Answer patient questions briefly and politely, in the same language the patient used (Arabic or English).
Use at most three short sentences. Never invent prices or medical diagnoses; invite the patient to book a visit instead.`

const namePrompt = `Is the following text a plausible human personal name (Arabic or Latin script, one to four words)?
Reply with exactly one word: VALID or INVALID.

Text: %s`

// ClinicNamer supplies the clinic name used in the assistant prompt.
type ClinicNamer interface {
	ClinicName() string
}

// Client answers patient questions through Gemini.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	clinic ClinicNamer
}

// NewClient dials the Gemini API. An empty model selects the default. The
// clinic name is read from clinic on every question.
func NewClient(ctx context.Context, apiKey, model string, clinic ClinicNamer) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: client.GenerativeModel(model), clinic: clinic}, nil
}

// Ask answers a single question without conversation memory.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	return c.generate(ctx, askPrompt(c.clinic, question))
}

func askPrompt(clinic ClinicNamer, question string) string {
	name := fallbackClinicName
	if clinic != nil {
		if n := clinic.ClinicName(); n != "" {
			name = n
		}
	}
	return fmt.Sprintf(assistantPrompt, name) + "\n\nPatient: " + question
}

// ValidateName reports whether text looks like a personal name.
func (c *Client) ValidateName(ctx context.Context, name string) (bool, error) {
	reply, err := c.generate(ctx, fmt.Sprintf(namePrompt, name))
	if err != nil {
		return false, err
	}
	return nameVerdict(reply)
}

func nameVerdict(reply string) (bool, error) {
	verdict := strings.ToUpper(strings.Trim(reply, " \n\t.`*"))
	switch {
	case strings.HasPrefix(verdict, "INVALID"):
		return false, nil
	case strings.HasPrefix(verdict, "VALID"):
		return true, nil
	default:
		return false, fmt.Errorf("unexpected name verdict %q", reply)
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	return candidateText(resp)
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
