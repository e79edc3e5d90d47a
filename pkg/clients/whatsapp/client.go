package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smileclinic/whatsbot/internal/config"
)

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error)
	SendInteractiveButtons(ctx context.Context, req SendButtonsRequest) (*SendMessageResponse, error)
	SendInteractiveList(ctx context.Context, req SendListRequest) (*SendMessageResponse, error)
	SendImage(ctx context.Context, req SendImageRequest) (*SendMessageResponse, error)
	SendLocation(ctx context.Context, req SendLocationRequest) (*SendMessageResponse, error)
	SendAudio(ctx context.Context, req SendAudioRequest) (*SendMessageResponse, error)
	UploadMedia(ctx context.Context, req UploadMediaRequest) (string, error)
	DownloadMedia(ctx context.Context, mediaID string) (*Media, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// Button is a quick-reply button. Titles are limited to 20 characters by Meta.
type Button struct {
	ID    string
	Title string
}

// SendButtonsRequest sends up to three reply buttons under a body text.
type SendButtonsRequest struct {
	To      string
	Body    string
	Buttons []Button
}

// ListRow is one selectable row of an interactive list.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups list rows under a title.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// SendListRequest sends an interactive list message.
type SendListRequest struct {
	To         string
	Header     string
	Body       string
	ButtonText string
	Sections   []ListSection
}

// SendImageRequest sends an image by public link.
type SendImageRequest struct {
	To      string
	Link    string
	Caption string
}

// SendLocationRequest sends a map pin.
type SendLocationRequest struct {
	To        string
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

// SendAudioRequest sends previously uploaded audio. Voice marks it as a voice note.
type SendAudioRequest struct {
	To      string
	MediaID string
	Voice   bool
}

// UploadMediaRequest uploads raw media to the phone number's media store.
type UploadMediaRequest struct {
	Data     []byte
	Filename string
	MimeType string
}

// Media is downloaded media content.
type Media struct {
	Data     []byte
	MimeType string
}

// SendMessageResponse mirrors the successful response from Meta.
type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiError represents a WhatsApp Cloud API error payload.
type apiError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorData    any    `json:"error_data"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error) {
	return c.send(ctx, req.To, "text", map[string]any{
		"body":        req.Body,
		"preview_url": req.PreviewURL,
	})
}

func (c *APIClient) SendInteractiveButtons(ctx context.Context, req SendButtonsRequest) (*SendMessageResponse, error) {
	if len(req.Buttons) == 0 || len(req.Buttons) > 3 {
		return nil, fmt.Errorf("interactive buttons: want 1-3 buttons, got %d", len(req.Buttons))
	}

	buttons := make([]map[string]any, 0, len(req.Buttons))
	for _, b := range req.Buttons {
		buttons = append(buttons, map[string]any{
			"type":  "reply",
			"reply": map[string]string{"id": b.ID, "title": b.Title},
		})
	}

	return c.send(ctx, req.To, "interactive", map[string]any{
		"type":   "button",
		"body":   map[string]string{"text": req.Body},
		"action": map[string]any{"buttons": buttons},
	})
}

func (c *APIClient) SendInteractiveList(ctx context.Context, req SendListRequest) (*SendMessageResponse, error) {
	if len(req.Sections) == 0 {
		return nil, fmt.Errorf("interactive list: at least one section is required")
	}

	interactive := map[string]any{
		"type": "list",
		"body": map[string]string{"text": req.Body},
		"action": map[string]any{
			"button":   req.ButtonText,
			"sections": req.Sections,
		},
	}
	if req.Header != "" {
		interactive["header"] = map[string]string{"type": "text", "text": req.Header}
	}

	return c.send(ctx, req.To, "interactive", interactive)
}

func (c *APIClient) SendImage(ctx context.Context, req SendImageRequest) (*SendMessageResponse, error) {
	image := map[string]any{"link": req.Link}
	if req.Caption != "" {
		image["caption"] = req.Caption
	}
	return c.send(ctx, req.To, "image", image)
}

func (c *APIClient) SendLocation(ctx context.Context, req SendLocationRequest) (*SendMessageResponse, error) {
	return c.send(ctx, req.To, "location", map[string]any{
		"latitude":  req.Latitude,
		"longitude": req.Longitude,
		"name":      req.Name,
		"address":   req.Address,
	})
}

func (c *APIClient) SendAudio(ctx context.Context, req SendAudioRequest) (*SendMessageResponse, error) {
	return c.send(ctx, req.To, "audio", map[string]any{
		"id":    req.MediaID,
		"voice": req.Voice,
	})
}

// UploadMedia stores media on Meta's side and returns its media id.
func (c *APIClient) UploadMedia(ctx context.Context, req UploadMediaRequest) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"messaging_product": "whatsapp",
			"type":              req.MimeType,
		}).
		SetMultipartField("file", req.Filename, req.MimeType, bytes.NewReader(req.Data)).
		SetResult(&result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/media", c.phoneNumberID))
	if err != nil {
		return "", fmt.Errorf("upload whatsapp media: %w", err)
	}
	if err := responseError(resp, apiErr); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("upload whatsapp media: empty media id")
	}

	return result.ID, nil
}

// DownloadMedia resolves the media url and fetches the content.
func (c *APIClient) DownloadMedia(ctx context.Context, mediaID string) (*Media, error) {
	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&meta).
		SetError(apiErr).
		Get(mediaID)
	if err != nil {
		return nil, fmt.Errorf("resolve whatsapp media %s: %w", mediaID, err)
	}
	if err := responseError(resp, apiErr); err != nil {
		return nil, err
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("resolve whatsapp media %s: empty url", mediaID)
	}

	content, err := c.httpClient.R().
		SetContext(ctx).
		Get(meta.URL)
	if err != nil {
		return nil, fmt.Errorf("download whatsapp media %s: %w", mediaID, err)
	}
	if content.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("download whatsapp media %s: status %d", mediaID, content.StatusCode())
	}

	return &Media{Data: content.Body(), MimeType: meta.MimeType}, nil
}

func (c *APIClient) send(ctx context.Context, to, messageType string, body any) (*SendMessageResponse, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              messageType,
		messageType:         body,
	}

	result := new(SendMessageResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp %s message: %w", messageType, err)
	}

	if err := responseError(resp, apiErr); err != nil {
		return nil, err
	}

	return result, nil
}

func responseError(resp *resty.Response, apiErr *apiError) error {
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}

	message := ""
	code := resp.StatusCode()
	if apiErr != nil {
		message = apiErr.Error.Message
		if apiErr.Error.Code != 0 {
			code = apiErr.Error.Code
		}
	}
	return fmt.Errorf("whatsapp api error: code=%d, message=%s", code, message)
}
