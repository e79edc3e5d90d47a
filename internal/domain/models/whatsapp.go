package models

// WebhookPayload is the body of a WhatsApp Cloud API webhook callback. Only
// the fields the bot reads are decoded.
type WebhookPayload struct {
	Entry []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Value WebhookValue `json:"value"`
}

// WebhookValue is one notification: user messages, delivery receipts for our
// own sends, or errors raised by Meta.
type WebhookValue struct {
	Metadata Metadata         `json:"metadata"`
	Contacts []Contact        `json:"contacts"`
	Messages []InboundMessage `json:"messages"`
	Statuses []MessageStatus  `json:"statuses"`
	Errors   []WebhookError   `json:"errors"`
}

// ProfileName returns the WhatsApp display name Meta sent for waID, if any.
func (v WebhookValue) ProfileName(waID string) string {
	for _, c := range v.Contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	return ""
}

// Metadata identifies the business number the notification was sent to.
type Metadata struct {
	PhoneNumberID string `json:"phone_number_id"`
}

type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

type ContactProfile struct {
	Name string `json:"name"`
}

// InboundMessage is the raw wire shape of a user message; ParseInbound turns
// it into a typed Inbound. Image, document and other types decode with only
// Type set and are not acted on.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	Text        *TextContent        `json:"text,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
	Audio       *MediaContent       `json:"audio,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

// InteractiveContent carries a button or list reply.
type InteractiveContent struct {
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MediaContent references media stored by Meta; the bytes are fetched with
// the media id.
type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// MessageStatus is a delivery receipt (sent, delivered, read, failed) for a
// message the bot sent.
type MessageStatus struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	RecipientID string         `json:"recipient_id"`
	Errors      []WebhookError `json:"errors"`
}

type WebhookError struct {
	Code  int    `json:"code"`
	Title string `json:"title"`
}
