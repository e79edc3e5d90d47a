package conversation

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/service/intent"
)

const minCancelDigits = 8

// Settings supplies the clinic values that can change at runtime.
type Settings interface {
	BookingTimes() []string
	ClinicName() string
}

// Stage is the conversation step a user is in, derived from State.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingSlot
	StageBookingName
	StageBookingPhone
	StageBookingService
	StageAwaitingCancelPhone
	StageAwaitingOffersConfirmation
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingSlot:
		return "awaiting_slot"
	case StageBookingName:
		return "booking_name"
	case StageBookingPhone:
		return "booking_phone"
	case StageBookingService:
		return "booking_service"
	case StageAwaitingCancelPhone:
		return "awaiting_cancel_phone"
	case StageAwaitingOffersConfirmation:
		return "awaiting_offers_confirmation"
	default:
		return "idle"
	}
}

// State is everything the machine knows about one user.
type State struct {
	Session models.Session
	Draft   *models.BookingDraft
}

// Stage derives the current step. An open draft wins over session flags.
func (s State) Stage() Stage {
	if s.Draft != nil {
		switch s.Draft.Next() {
		case models.FieldName:
			return StageBookingName
		case models.FieldPhone:
			return StageBookingPhone
		default:
			return StageBookingService
		}
	}
	switch {
	case s.Session.WaitingForCancelPhone:
		return StageAwaitingCancelPhone
	case s.Session.WaitingForSlot:
		return StageAwaitingSlot
	case s.Session.WaitingForOffersConfirmation:
		return StageAwaitingOffersConfirmation
	default:
		return StageIdle
	}
}

func (s State) clone() State {
	if s.Draft != nil {
		d := *s.Draft
		s.Draft = &d
	}
	return s
}

// Event is an input to the machine.
type Event interface{ isEvent() }

type (
	// TextReceived carries a text message or a voice transcript.
	TextReceived struct{ Text string }
	// SlotSelected is a slot button reply.
	SlotSelected struct{ Slot string }
	// ServiceSelected is a service list reply.
	ServiceSelected struct{ Service string }
	// ButtonPressed is any other button reply.
	ButtonPressed struct{ ID string }
	// NameChecked reports the plausibility check requested by ValidateName.
	NameChecked struct {
		Name  string
		Valid bool
	}
	// BookingSaved reports the outcome of SaveBooking.
	BookingSaved struct {
		Booking models.Booking
		Err     error
	}
	// CancellationResolved reports the outcome of CancelBooking. Booking is nil
	// when no active booking matched.
	CancellationResolved struct {
		Booking *models.Booking
		Err     error
	}
)

func (TextReceived) isEvent()         {}
func (SlotSelected) isEvent()         {}
func (ServiceSelected) isEvent()      {}
func (ButtonPressed) isEvent()        {}
func (NameChecked) isEvent()          {}
func (BookingSaved) isEvent()         {}
func (CancellationResolved) isEvent() {}

// Effect is an outbound intent produced by the machine and carried out by the Router.
type Effect interface{ isEffect() }

type (
	SendText         struct{ Text string }
	SendSlotOptions  struct{ Slots []string }
	SendServiceList  struct{}
	SendLocation     struct{ Lang intent.Lang }
	SendOffersTeaser struct{ Lang intent.Lang }
	SendOffers       struct{ Lang intent.Lang }
	SendDoctors      struct{ Lang intent.Lang }
	// AskAI relays the assistant's answer, then Resume when set.
	AskAI struct {
		Question string
		Resume   string
	}
	// ValidateName is answered with NameChecked.
	ValidateName struct{ Name string }
	// SaveBooking is answered with BookingSaved.
	SaveBooking struct{ Draft models.BookingDraft }
	// CancelBooking is answered with CancellationResolved.
	CancelBooking struct{ Phone string }
)

func (SendText) isEffect()         {}
func (SendSlotOptions) isEffect()  {}
func (SendServiceList) isEffect()  {}
func (SendLocation) isEffect()     {}
func (SendOffersTeaser) isEffect() {}
func (SendOffers) isEffect()       {}
func (SendDoctors) isEffect()      {}
func (AskAI) isEffect()            {}
func (ValidateName) isEffect()     {}
func (SaveBooking) isEffect()      {}
func (CancelBooking) isEffect()    {}

// Machine is the pure conversation transition function.
type Machine struct {
	settings Settings
	phone    *regexp.Regexp
	example  string
	pick     func(n int) int
}

// NewMachine compiles the phone rule and binds the clinic settings.
func NewMachine(settings Settings, phonePattern, phoneExample string) (*Machine, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	re, err := regexp.Compile(phonePattern)
	if err != nil {
		return nil, fmt.Errorf("compile phone pattern: %w", err)
	}
	return &Machine{settings: settings, phone: re, example: phoneExample, pick: rand.Intn}, nil
}

// ReplyEvent turns an interactive reply id into an event.
func (m *Machine) ReplyEvent(replyID string) Event {
	if slot, ok := slotFromReply(replyID, m.settings.BookingTimes()); ok {
		return SlotSelected{Slot: slot}
	}
	if svc, ok := serviceFromReply(replyID); ok {
		return ServiceSelected{Service: svc}
	}
	return ButtonPressed{ID: replyID}
}

// Step applies ev to st and returns the next state with the effects to run.
// st is not modified.
func (m *Machine) Step(st State, ev Event) (State, []Effect) {
	next := st.clone()

	var effects []Effect
	switch e := ev.(type) {
	case TextReceived:
		effects = m.onText(&next, e.Text)
	case SlotSelected:
		effects = m.startDraft(&next, e.Slot)
	case ServiceSelected:
		effects = m.onServiceSelected(&next, e.Service)
	case ButtonPressed:
		effects = m.onButton(&next, e.ID)
	case NameChecked:
		effects = m.onNameChecked(&next, e)
	case BookingSaved:
		next.Draft = nil
		if e.Err != nil {
			effects = say(msgBookingFailed)
		} else {
			effects = say(bookingConfirmation(e.Booking))
		}
	case CancellationResolved:
		switch {
		case e.Err != nil:
			effects = say(msgCancelFailed)
		case e.Booking == nil:
			effects = say(msgCancelNotFound)
		default:
			effects = say(cancellationSummary(*e.Booking))
		}
	}

	return next, effects
}

func (m *Machine) onText(st *State, raw string) []Effect {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	cls := intent.Classify(text)
	lang := intent.DetectLanguage(text)
	s := &st.Session
	if primary := cls.Primary(); primary != "" {
		s.LastIntent = primary
	}

	switch {
	case cls.Has(intent.Reset):
		s.ClearFlags()
		st.Draft = nil
		return say(greeting(lang, m.settings.ClinicName(), m.pick))

	case cls.Has(intent.Greeting) && st.Draft == nil:
		return say(greeting(lang, m.settings.ClinicName(), m.pick))

	case cls.Has(intent.Banned):
		st.Draft = nil
		s.WaitingForCancelPhone = false
		return say(banWarning(lang))

	case cls.Has(intent.Location):
		return []Effect{SendLocation{Lang: lang}}

	case cls.Has(intent.Offers):
		s.WaitingForOffersConfirmation = true
		return []Effect{SendOffersTeaser{Lang: lang}}

	case s.WaitingForOffersConfirmation:
		s.WaitingForOffersConfirmation = false
		if cls.Has(intent.OffersConfirmation) {
			return []Effect{SendOffers{Lang: lang}}
		}
		return nil

	case cls.Has(intent.Doctors):
		return []Effect{SendDoctors{Lang: lang}}

	case cls.Has(intent.Cancel):
		st.Draft = nil
		s.WaitingForSlot = false
		s.WaitingForCancelPhone = true
		return say(msgCancelPrompt)

	case s.WaitingForCancelPhone:
		digits := intent.NormalizeDigits(text)
		if len(digits) < minCancelDigits {
			return say(msgCancelInvalid)
		}
		s.WaitingForCancelPhone = false
		return []Effect{CancelBooking{Phone: digits}}

	case st.Draft == nil:
		return m.onIdleText(st, text, cls)
	}

	return m.onDraftText(st, text)
}

func (m *Machine) onIdleText(st *State, text string, cls intent.Set) []Effect {
	slots := m.settings.BookingTimes()

	if slot, ok := slotShortcut(text, slots); ok {
		return m.startDraft(st, slot)
	}
	if cls.Has(intent.Booking) || st.Session.WaitingForSlot {
		if slot, ok := slotMention(text, slots); ok {
			return m.startDraft(st, slot)
		}
	}
	if cls.Has(intent.Booking) {
		st.Session.WaitingForSlot = true
		return []Effect{SendSlotOptions{Slots: slots}}
	}

	return []Effect{AskAI{Question: text}}
}

func (m *Machine) onDraftText(st *State, text string) []Effect {
	d := st.Draft

	switch d.Next() {
	case models.FieldName:
		if intent.IsQuestion(text) {
			return []Effect{AskAI{Question: text, Resume: msgResumeName}}
		}
		if utf8.RuneCountInString(text) < 2 {
			return say(msgNameTooShort)
		}
		return []Effect{ValidateName{Name: text}}

	case models.FieldPhone:
		if intent.IsQuestion(text) {
			return []Effect{AskAI{Question: text, Resume: msgResumePhone}}
		}
		phone := intent.NormalizeDigits(text)
		if !m.phone.MatchString(phone) {
			return say(phoneInvalid(m.example))
		}
		_ = d.Fill(models.FieldPhone, phone)
		return []Effect{SendText{Text: msgPhoneAccepted}, SendServiceList{}}

	case models.FieldService:
		if intent.IsQuestion(text) {
			return []Effect{AskAI{Question: text, Resume: msgResumeService}}
		}
		name, ok := DetectService(text)
		if !ok {
			return []Effect{SendText{Text: msgServiceUnknown}, SendServiceList{}}
		}
		_ = d.Fill(models.FieldService, name)
		return []Effect{SaveBooking{Draft: *d}}
	}

	// Complete draft: a save is already under way.
	return nil
}

func (m *Machine) startDraft(st *State, slot string) []Effect {
	st.Draft = models.NewDraft(slot)
	st.Session.WaitingForSlot = false
	st.Session.WaitingForCancelPhone = false
	return say(msgSlotChosen)
}

func (m *Machine) onServiceSelected(st *State, service string) []Effect {
	d := st.Draft
	switch {
	case d == nil:
		return say(msgStartFirst)
	case d.Next() == models.FieldName || d.Next() == models.FieldPhone:
		return say(msgPhoneFirst)
	case d.Complete():
		return nil
	}
	_ = d.Fill(models.FieldService, service)
	return []Effect{SaveBooking{Draft: *d}}
}

func (m *Machine) onButton(st *State, id string) []Effect {
	switch id {
	case startBookingID, quickBookingID:
		st.Draft = nil
		st.Session.WaitingForCancelPhone = false
		st.Session.WaitingForSlot = true
		return []Effect{SendSlotOptions{Slots: m.settings.BookingTimes()}}
	}
	return nil
}

func (m *Machine) onNameChecked(st *State, e NameChecked) []Effect {
	if st.Draft == nil || st.Draft.Next() != models.FieldName {
		return nil
	}
	if !e.Valid {
		return say(msgNameUnclear)
	}
	if err := st.Draft.Fill(models.FieldName, strings.TrimSpace(e.Name)); err != nil {
		return say(msgNameTooShort)
	}
	return say(msgNameAccepted)
}

func say(text string) []Effect {
	return []Effect{SendText{Text: text}}
}
