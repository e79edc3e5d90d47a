package models

import "time"

// Session holds the per-user conversational flags that are not booking data.
type Session struct {
	UserID                       string      `json:"user_id"`
	WaitingForCancelPhone        bool        `json:"waiting_for_cancel_phone"`
	WaitingForOffersConfirmation bool        `json:"waiting_for_offers_confirmation"`
	WaitingForSlot               bool        `json:"waiting_for_slot"`
	LastIntent                   string      `json:"last_intent,omitempty"`
	LastMessageType              MessageType `json:"last_message_type,omitempty"`
	UpdatedAt                    time.Time   `json:"updated_at"`
}

// NewSession returns a session with every flag cleared.
func NewSession(userID string) *Session {
	return &Session{UserID: userID}
}

// ClearFlags resets every waiting flag without touching informational fields.
func (s *Session) ClearFlags() {
	s.WaitingForCancelPhone = false
	s.WaitingForOffersConfirmation = false
	s.WaitingForSlot = false
}
