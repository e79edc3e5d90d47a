package models

// OutboundMessageRequest represents requests to send a message manually via the API.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// WebsiteBooking is a booking notification pushed by the clinic website. The
// website may send the fields at the top level or wrapped in a "record" object.
type WebsiteBooking struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Service     string          `json:"service"`
	Appointment string          `json:"appointment,omitempty"`
	Record      *WebsiteBooking `json:"record,omitempty"`
}

// Resolve returns the record payload when present, otherwise the top-level fields.
func (w WebsiteBooking) Resolve() WebsiteBooking {
	if w.Record != nil {
		return *w.Record
	}
	return w
}

// Valid reports whether the required notification fields are present.
func (w WebsiteBooking) Valid() bool {
	return w.Name != "" && w.Phone != "" && w.Service != ""
}
