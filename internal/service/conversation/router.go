package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/config"
	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/observability/metrics"
	"github.com/smileclinic/whatsbot/internal/repository/state"
	"github.com/smileclinic/whatsbot/internal/service/intent"
	whatsapp "github.com/smileclinic/whatsbot/pkg/clients/whatsapp"
)

const (
	bookingSource       = "whatsapp"
	voiceFilename       = "reply.ogg"
	voiceMimeType       = "audio/ogg"
	msgVoiceUnsupported = "🎙️ لا يمكننا استقبال الرسائل الصوتية حالياً، أرسل رسالتك كتابةً لو سمحت."
)

// Assistant answers free-form questions and checks names.
type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
	ValidateName(ctx context.Context, name string) (bool, error)
}

// Synthesizer renders reply text as voice audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns voice-note audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// BookingRepository persists bookings.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking models.Booking) (models.Booking, error)
	FindLatestActiveBookingByPhone(ctx context.Context, phone string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
}

// BookingMirror receives a copy of every booking change.
type BookingMirror interface {
	ExportBooking(ctx context.Context, booking models.Booking) error
	ExportCancellation(ctx context.Context, booking models.Booking) error
}

// Dependencies are the collaborators of a Router. Voice, Speech and Mirror
// are optional.
type Dependencies struct {
	Store     state.Store
	Messenger whatsapp.Client
	Assistant Assistant
	Voice     Synthesizer
	Speech    Transcriber
	Bookings  BookingRepository
	Mirror    BookingMirror
	Metrics   *metrics.BotMetrics
}

// Router feeds inbound messages through the Machine and carries out the
// resulting effects.
type Router struct {
	machine  *Machine
	settings Settings
	clinic   config.ClinicConfig
	deps     Dependencies
	logger   *zap.Logger

	now   func() time.Time
	pause func(ctx context.Context, d time.Duration)
}

// NewRouter wires a router for the given clinic.
func NewRouter(deps Dependencies, clinic config.ClinicConfig, settings Settings, logger *zap.Logger) (*Router, error) {
	if deps.Store == nil || deps.Messenger == nil || deps.Bookings == nil {
		return nil, errors.New("store, messenger and bookings are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	machine, err := NewMachine(settings, clinic.PhonePattern, clinic.PhoneExample)
	if err != nil {
		return nil, err
	}

	return &Router{
		machine:  machine,
		settings: settings,
		clinic:   clinic,
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		pause:    sleepContext,
	}, nil
}

type channel struct {
	to    string
	voice bool
}

// Handle processes one admitted inbound message. Collaborator failures are
// logged and answered with an apology; only state store failures are returned.
func (r *Router) Handle(ctx context.Context, in models.Inbound) error {
	if in.Type == models.MessageUnrecognized || in.From == "" {
		r.logger.Debug("ignoring unrecognized message", zap.String("from", in.From), zap.String("message_id", in.ID))
		return nil
	}

	st, err := r.load(ctx, in.From)
	if err != nil {
		return err
	}

	ch := channel{to: in.From, voice: in.Type == models.MessageAudio && r.deps.Voice != nil}

	var ev Event
	switch in.Type {
	case models.MessageText:
		ev = TextReceived{Text: in.Text}
	case models.MessageInteractive:
		ev = r.machine.ReplyEvent(in.ReplyID)
	case models.MessageAudio:
		text, ok := r.transcribe(ctx, ch, in)
		if !ok {
			return nil
		}
		ev = TextReceived{Text: text}
	}

	r.logger.Info("routing message",
		zap.String("from", in.From),
		zap.String("type", string(in.Type)),
		zap.String("stage", st.Stage().String()))

	next := st
	next.Session.LastMessageType = in.Type
	return r.run(ctx, ch, st, next, ev)
}

func (r *Router) run(ctx context.Context, ch channel, saved, st State, first Event) error {
	queue := []Event{first}
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]

		next, effects := r.machine.Step(st, ev)
		next.Session.UpdatedAt = r.now().UTC()
		if err := r.persist(ctx, saved, next); err != nil {
			return err
		}
		saved, st = next, next

		for _, eff := range effects {
			if follow := r.execute(ctx, ch, eff); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
	return nil
}

func (r *Router) load(ctx context.Context, userID string) (State, error) {
	session, err := r.deps.Store.Session(ctx, userID)
	if err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	draft, err := r.deps.Store.Draft(ctx, userID)
	if err != nil {
		return State{}, fmt.Errorf("load draft: %w", err)
	}
	return State{Session: *session, Draft: draft}, nil
}

func (r *Router) persist(ctx context.Context, prev, next State) error {
	session := next.Session
	if err := r.deps.Store.SaveSession(ctx, &session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	switch {
	case next.Draft == nil && prev.Draft != nil:
		if err := r.deps.Store.DeleteDraft(ctx, session.UserID); err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
	case next.Draft != nil && (prev.Draft == nil || *prev.Draft != *next.Draft):
		if err := r.deps.Store.SaveDraft(ctx, session.UserID, next.Draft); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
	}
	return nil
}

func (r *Router) execute(ctx context.Context, ch channel, eff Effect) Event {
	switch e := eff.(type) {
	case SendText:
		r.reply(ctx, ch, e.Text)
	case SendSlotOptions:
		r.sendSlots(ctx, ch, e.Slots)
	case SendServiceList:
		r.sendServiceList(ctx, ch)
	case SendLocation:
		r.sendLocation(ctx, ch, e.Lang)
	case SendOffersTeaser:
		r.reply(ctx, ch, offersTeaser(e.Lang))
	case SendOffers:
		r.sendGallery(ctx, ch, offersIntro(e.Lang), r.clinic.OfferImages, e.Lang)
	case SendDoctors:
		r.sendGallery(ctx, ch, doctorsIntro(e.Lang), r.clinic.DoctorImages, e.Lang)
	case AskAI:
		r.reply(ctx, ch, r.ask(ctx, e.Question))
		if e.Resume != "" {
			r.reply(ctx, ch, e.Resume)
		}
	case ValidateName:
		return NameChecked{Name: e.Name, Valid: r.validateName(ctx, e.Name)}
	case SaveBooking:
		return r.saveBooking(ctx, e.Draft)
	case CancelBooking:
		return r.cancelBooking(ctx, e.Phone)
	default:
		r.logger.Warn("unknown effect", zap.String("effect", fmt.Sprintf("%T", eff)))
	}
	return nil
}

func (r *Router) ask(ctx context.Context, question string) string {
	if r.deps.Assistant == nil {
		return msgGenericError
	}
	answer, err := r.deps.Assistant.Ask(ctx, question)
	if err != nil || answer == "" {
		r.logger.Error("assistant failed", zap.Error(err))
		return msgGenericError
	}
	return answer
}

// validateName is soft: an unavailable assistant accepts the name.
func (r *Router) validateName(ctx context.Context, name string) bool {
	if r.deps.Assistant == nil {
		return true
	}
	ok, err := r.deps.Assistant.ValidateName(ctx, name)
	if err != nil {
		r.logger.Warn("name validation unavailable, accepting name", zap.Error(err))
		return true
	}
	return ok
}

func (r *Router) saveBooking(ctx context.Context, draft models.BookingDraft) Event {
	booking := models.NewBookingFromDraft(draft, bookingSource, r.now())

	saved, err := r.deps.Bookings.InsertBooking(ctx, booking)
	if err != nil {
		r.logger.Error("failed to save booking", zap.Error(err), zap.String("phone", booking.Phone))
		r.deps.Metrics.ObserveBooking("create_failed")
		return BookingSaved{Booking: booking, Err: err}
	}
	r.deps.Metrics.ObserveBooking("created")
	r.logger.Info("booking saved", zap.String("booking_id", saved.ID), zap.String("service", saved.Service))

	if r.deps.Mirror != nil {
		if err := r.deps.Mirror.ExportBooking(ctx, saved); err != nil {
			r.logger.Warn("failed to mirror booking", zap.Error(err), zap.String("booking_id", saved.ID))
		}
	}
	return BookingSaved{Booking: saved}
}

func (r *Router) cancelBooking(ctx context.Context, phone string) Event {
	booking, err := r.deps.Bookings.FindLatestActiveBookingByPhone(ctx, phone)
	if err != nil {
		r.logger.Error("failed to look up booking", zap.Error(err), zap.String("phone", phone))
		r.deps.Metrics.ObserveBooking("cancel_failed")
		return CancellationResolved{Err: err}
	}
	if booking == nil {
		r.deps.Metrics.ObserveBooking("cancel_not_found")
		return CancellationResolved{}
	}

	if err := r.deps.Bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusCanceled); err != nil {
		r.logger.Error("failed to cancel booking", zap.Error(err), zap.String("booking_id", booking.ID))
		r.deps.Metrics.ObserveBooking("cancel_failed")
		return CancellationResolved{Err: err}
	}
	booking.Status = models.BookingStatusCanceled
	r.deps.Metrics.ObserveBooking("canceled")

	if r.deps.Mirror != nil {
		if err := r.deps.Mirror.ExportCancellation(ctx, *booking); err != nil {
			r.logger.Warn("failed to mirror cancellation", zap.Error(err), zap.String("booking_id", booking.ID))
		}
	}
	return CancellationResolved{Booking: booking}
}

func (r *Router) transcribe(ctx context.Context, ch channel, in models.Inbound) (string, bool) {
	if r.deps.Speech == nil {
		r.reply(ctx, ch, msgVoiceUnsupported)
		return "", false
	}

	media, err := r.deps.Messenger.DownloadMedia(ctx, in.MediaID)
	if err != nil {
		r.logger.Error("failed to download voice note", zap.Error(err), zap.String("media_id", in.MediaID))
		r.reply(ctx, ch, msgGenericError)
		return "", false
	}

	text, err := r.deps.Speech.Transcribe(ctx, media.Data)
	if err != nil {
		r.logger.Error("failed to transcribe voice note", zap.Error(err), zap.String("media_id", in.MediaID))
		r.reply(ctx, ch, msgGenericError)
		return "", false
	}
	if text == "" {
		r.reply(ctx, ch, msgVoiceNotHeard)
		return "", false
	}

	r.logger.Debug("voice note transcribed", zap.String("from", in.From), zap.String("transcript", text))
	return text, true
}

// reply sends text, as a voice note on the voice channel. Voice failures fall
// back to text.
func (r *Router) reply(ctx context.Context, ch channel, text string) {
	if ch.voice {
		err := r.sendVoice(ctx, ch.to, text)
		r.deps.Metrics.ObserveOutbound("voice", err)
		if err == nil {
			return
		}
		r.logger.Warn("voice reply failed, falling back to text", zap.Error(err), zap.String("to", ch.to))
	}

	_, err := r.deps.Messenger.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{To: ch.to, Body: text})
	r.observeSend("text", ch.to, err)
}

func (r *Router) sendVoice(ctx context.Context, to, text string) error {
	audio, err := r.deps.Voice.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	mediaID, err := r.deps.Messenger.UploadMedia(ctx, whatsapp.UploadMediaRequest{
		Data:     audio,
		Filename: voiceFilename,
		MimeType: voiceMimeType,
	})
	if err != nil {
		return err
	}
	_, err = r.deps.Messenger.SendAudio(ctx, whatsapp.SendAudioRequest{To: to, MediaID: mediaID, Voice: true})
	return err
}

func (r *Router) sendSlots(ctx context.Context, ch channel, slots []string) {
	if ch.voice {
		r.reply(ctx, ch, slotVoicePrompt(slots))
		return
	}

	_, err := r.deps.Messenger.SendInteractiveButtons(ctx, whatsapp.SendButtonsRequest{
		To:      ch.to,
		Body:    msgSlotPrompt,
		Buttons: slotButtons(slots),
	})
	r.observeSend("buttons", ch.to, err)
	if err != nil {
		r.reply(ctx, ch, slotFallback(slots))
	}
}

func (r *Router) sendServiceList(ctx context.Context, ch channel) {
	if ch.voice {
		r.reply(ctx, ch, msgServiceVoice)
		return
	}

	_, err := r.deps.Messenger.SendInteractiveList(ctx, whatsapp.SendListRequest{
		To:         ch.to,
		Header:     msgServiceListHead,
		Body:       msgServiceListBody,
		ButtonText: msgServiceListBtn,
		Sections:   serviceSections(),
	})
	r.observeSend("list", ch.to, err)
	if err != nil {
		r.reply(ctx, ch, msgServiceFallback)
	}
}

func (r *Router) sendLocation(ctx context.Context, ch channel, lang intent.Lang) {
	name := r.settings.ClinicName()
	if r.clinic.Latitude != 0 || r.clinic.Longitude != 0 {
		_, err := r.deps.Messenger.SendLocation(ctx, whatsapp.SendLocationRequest{
			To:        ch.to,
			Latitude:  r.clinic.Latitude,
			Longitude: r.clinic.Longitude,
			Name:      name,
			Address:   r.clinic.Address,
		})
		r.observeSend("location", ch.to, err)
		r.pause(ctx, r.clinic.MediaDelay)
	}
	r.reply(ctx, ch, locationText(lang, name, r.clinic.Address, r.clinic.MapsURL))
}

// sendGallery sends an intro, each image, then the booking start button.
func (r *Router) sendGallery(ctx context.Context, ch channel, intro string, images []string, lang intent.Lang) {
	r.reply(ctx, ch, intro)
	for _, link := range images {
		r.pause(ctx, r.clinic.MediaDelay)
		_, err := r.deps.Messenger.SendImage(ctx, whatsapp.SendImageRequest{To: ch.to, Link: link})
		r.observeSend("image", ch.to, err)
	}
	r.pause(ctx, r.clinic.MediaDelay)

	_, err := r.deps.Messenger.SendInteractiveButtons(ctx, whatsapp.SendButtonsRequest{
		To:      ch.to,
		Body:    bookingButtonBody(lang),
		Buttons: []whatsapp.Button{{ID: startBookingID, Title: bookingButtonTitle(lang)}},
	})
	r.observeSend("buttons", ch.to, err)
	if err != nil {
		r.reply(ctx, ch, bookingButtonBody(lang))
	}
}

func (r *Router) observeSend(kind, to string, err error) {
	r.deps.Metrics.ObserveOutbound(kind, err)
	if err != nil {
		r.logger.Error("failed to send whatsapp message", zap.Error(err), zap.String("kind", kind), zap.String("to", to))
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
