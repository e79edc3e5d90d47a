package models

import "strings"

// MessageType classifies an inbound WhatsApp message after parsing.
type MessageType string

const (
	MessageText         MessageType = "text"
	MessageInteractive  MessageType = "interactive"
	MessageAudio        MessageType = "audio"
	MessageUnrecognized MessageType = "unrecognized"
)

// Inbound is the validated, typed view of one inbound message. Exactly one of
// Text, ReplyID or MediaID is meaningful depending on Type.
type Inbound struct {
	Type       MessageType
	From       string
	ID         string
	Text       string
	ReplyID    string
	ReplyTitle string
	MediaID    string
	MimeType   string

	// ProfileName is the sender's WhatsApp display name. Logging only.
	ProfileName string
}

// Fingerprint is the text used by the duplicate guard. Only text messages
// carry one.
func (in Inbound) Fingerprint() string {
	if in.Type == MessageText {
		return in.Text
	}
	return ""
}

// ParseInbound derives an Inbound from the raw webhook message. Shapes the bot
// cannot act on (images, documents, empty text, missing sender) come back as
// MessageUnrecognized.
func ParseInbound(msg InboundMessage) Inbound {
	in := Inbound{Type: MessageUnrecognized, From: msg.From, ID: msg.ID}
	if msg.From == "" {
		return in
	}

	switch {
	case msg.Type == "audio" || (msg.Type == "" && msg.Audio != nil):
		if msg.Audio == nil || msg.Audio.ID == "" {
			return in
		}
		in.Type = MessageAudio
		in.MediaID = msg.Audio.ID
		in.MimeType = msg.Audio.MimeType
	case msg.Type == "interactive" || (msg.Type == "" && msg.Interactive != nil):
		if msg.Interactive == nil {
			return in
		}
		switch {
		case msg.Interactive.ListReply != nil && msg.Interactive.ListReply.ID != "":
			in.ReplyID = msg.Interactive.ListReply.ID
			in.ReplyTitle = msg.Interactive.ListReply.Title
		case msg.Interactive.ButtonReply != nil && msg.Interactive.ButtonReply.ID != "":
			in.ReplyID = msg.Interactive.ButtonReply.ID
			in.ReplyTitle = msg.Interactive.ButtonReply.Title
		default:
			return in
		}
		in.Type = MessageInteractive
	case msg.Text != nil:
		text := strings.TrimSpace(msg.Text.Body)
		if text == "" {
			return in
		}
		in.Type = MessageText
		in.Text = text
	}

	return in
}
