package conversation

import (
	"strings"
	"unicode"

	"github.com/smileclinic/whatsbot/internal/service/intent"
	whatsapp "github.com/smileclinic/whatsbot/pkg/clients/whatsapp"
)

const (
	slotIDPrefix      = "slot_"
	startBookingID    = "start_booking_flow"
	quickBookingID    = "quick_booking"
	maxSlotButtons    = 3
	maxButtonTitleLen = 20
)

func slotKey(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), ""))
}

func slotID(label string) string {
	return slotIDPrefix + slotKey(label)
}

// slotFromReply maps a slot button id back to its configured label. Ids that
// no longer match a configured slot are upper-cased as a best effort.
func slotFromReply(id string, slots []string) (string, bool) {
	if !strings.HasPrefix(id, slotIDPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(id, slotIDPrefix)
	if key == "" {
		return "", false
	}
	for _, label := range slots {
		if slotKey(label) == key {
			return label, true
		}
	}
	return strings.ToUpper(key), true
}

// slotShortcut returns the slot whose leading number equals text, so "6"
// selects "6 PM". Arabic-Indic digits are accepted.
func slotShortcut(text string, slots []string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", false
	}
	for _, r := range t {
		if !unicode.IsDigit(r) {
			return "", false
		}
	}
	n := intent.NormalizeDigits(t)
	for _, label := range slots {
		if leadingNumber(label) == n {
			return label, true
		}
	}
	return "", false
}

// slotMention finds a configured slot written out inside text, e.g. "احجز 6 PM".
func slotMention(text string, slots []string) (string, bool) {
	compact := slotKey(text)
	for _, label := range slots {
		if key := slotKey(label); key != "" && strings.Contains(compact, key) {
			return label, true
		}
	}
	return "", false
}

func leadingNumber(label string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(label) {
		if !unicode.IsDigit(r) {
			break
		}
		b.WriteRune(r)
	}
	return intent.NormalizeDigits(b.String())
}

func slotButtons(slots []string) []whatsapp.Button {
	n := len(slots)
	if n > maxSlotButtons {
		n = maxSlotButtons
	}
	buttons := make([]whatsapp.Button, 0, n)
	for _, label := range slots[:n] {
		title := label
		if r := []rune(title); len(r) > maxButtonTitleLen {
			title = string(r[:maxButtonTitleLen])
		}
		buttons = append(buttons, whatsapp.Button{ID: slotID(label), Title: title})
	}
	return buttons
}
