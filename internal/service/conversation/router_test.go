package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/config"
	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/repository/state"
	whatsapp "github.com/smileclinic/whatsbot/pkg/clients/whatsapp"
)

var fixedNow = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

type sent struct {
	kind string
	to   string
	body string
}

type fakeMessenger struct {
	mu          sync.Mutex
	sent        []sent
	failButtons bool
	failUpload  bool
	media       *whatsapp.Media
}

func (f *fakeMessenger) record(kind, to, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{kind: kind, to: to, body: body})
}

func (f *fakeMessenger) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		out = append(out, s.kind)
	}
	return out
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.kind == "text" {
			out = append(out, s.body)
		}
	}
	return out
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func (f *fakeMessenger) SendTextMessage(_ context.Context, req whatsapp.SendTextMessageRequest) (*whatsapp.SendMessageResponse, error) {
	f.record("text", req.To, req.Body)
	return &whatsapp.SendMessageResponse{}, nil
}

func (f *fakeMessenger) SendInteractiveButtons(_ context.Context, req whatsapp.SendButtonsRequest) (*whatsapp.SendMessageResponse, error) {
	if f.failButtons {
		return nil, errors.New("buttons rejected")
	}
	f.record("buttons", req.To, req.Body)
	return &whatsapp.SendMessageResponse{}, nil
}

func (f *fakeMessenger) SendInteractiveList(_ context.Context, req whatsapp.SendListRequest) (*whatsapp.SendMessageResponse, error) {
	f.record("list", req.To, req.Body)
	return &whatsapp.SendMessageResponse{}, nil
}

func (f *fakeMessenger) SendImage(_ context.Context, req whatsapp.SendImageRequest) (*whatsapp.SendMessageResponse, error) {
	f.record("image", req.To, req.Link)
	return &whatsapp.SendMessageResponse{}, nil
}

func (f *fakeMessenger) SendLocation(_ context.Context, req whatsapp.SendLocationRequest) (*whatsapp.SendMessageResponse, error) {
	f.record("location", req.To, req.Name)
	return &whatsapp.SendMessageResponse{}, nil
}

func (f *fakeMessenger) SendAudio(_ context.Context, req whatsapp.SendAudioRequest) (*whatsapp.SendMessageResponse, error) {
	f.record("audio", req.To, req.MediaID)
	return &whatsapp.SendMessageResponse{}, nil
}

func (f *fakeMessenger) UploadMedia(_ context.Context, req whatsapp.UploadMediaRequest) (string, error) {
	if f.failUpload {
		return "", errors.New("upload failed")
	}
	return "media-" + req.Filename, nil
}

func (f *fakeMessenger) DownloadMedia(_ context.Context, mediaID string) (*whatsapp.Media, error) {
	if f.media == nil {
		return nil, errors.New("media " + mediaID + " not found")
	}
	return f.media, nil
}

type fakeAssistant struct {
	answer    string
	askErr    error
	nameOK    bool
	nameErr   error
	questions []string
}

func (f *fakeAssistant) Ask(_ context.Context, q string) (string, error) {
	f.questions = append(f.questions, q)
	return f.answer, f.askErr
}

func (f *fakeAssistant) ValidateName(context.Context, string) (bool, error) {
	return f.nameOK, f.nameErr
}

type fakeBookings struct {
	inserted  []models.Booking
	insertErr error
	active    map[string]*models.Booking
	updates   map[string]models.BookingStatus
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{active: map[string]*models.Booking{}, updates: map[string]models.BookingStatus{}}
}

func (f *fakeBookings) InsertBooking(_ context.Context, b models.Booking) (models.Booking, error) {
	if f.insertErr != nil {
		return models.Booking{}, f.insertErr
	}
	b.ID = "bk-1"
	f.inserted = append(f.inserted, b)
	return b, nil
}

func (f *fakeBookings) FindLatestActiveBookingByPhone(_ context.Context, phone string) (*models.Booking, error) {
	b, ok := f.active[phone]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) UpdateBookingStatus(_ context.Context, id string, status models.BookingStatus) error {
	f.updates[id] = status
	return nil
}

type fakeMirror struct {
	bookings      []models.Booking
	cancellations []models.Booking
}

func (f *fakeMirror) ExportBooking(_ context.Context, b models.Booking) error {
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeMirror) ExportCancellation(_ context.Context, b models.Booking) error {
	f.cancellations = append(f.cancellations, b)
	return nil
}

type fakeVoice struct{ err error }

func (f fakeVoice) Synthesize(context.Context, string) ([]byte, error) {
	return []byte("OggS"), f.err
}

type fakeSpeech struct{ transcript string }

func (f fakeSpeech) Transcribe(context.Context, []byte) (string, error) {
	return f.transcript, nil
}

type routerFixture struct {
	router    *Router
	store     *state.MemoryStore
	messenger *fakeMessenger
	assistant *fakeAssistant
	bookings  *fakeBookings
	mirror    *fakeMirror
}

func newRouterFixture(t *testing.T, mutate func(*Dependencies)) *routerFixture {
	t.Helper()

	f := &routerFixture{
		store:     state.NewMemoryStore(),
		messenger: &fakeMessenger{},
		assistant: &fakeAssistant{answer: "نعم، متوفر.", nameOK: true},
		bookings:  newFakeBookings(),
		mirror:    &fakeMirror{},
	}
	deps := Dependencies{
		Store:     f.store,
		Messenger: f.messenger,
		Assistant: f.assistant,
		Bookings:  f.bookings,
		Mirror:    f.mirror,
	}
	if mutate != nil {
		mutate(&deps)
	}

	clinic := config.ClinicConfig{
		PhonePattern: `^07\d{8}$`,
		PhoneExample: "0791234567",
		OfferImages:  []string{"https://cdn.example.com/o1.jpg", "https://cdn.example.com/o2.jpg"},
		Latitude:     31.95,
		Longitude:    35.91,
		Address:      "Amman",
		MediaDelay:   time.Second,
	}
	settings := staticSettings{name: "Smile Clinic", times: []string{"3 PM", "6 PM", "9 PM"}}

	r, err := NewRouter(deps, clinic, settings, zap.NewNop())
	require.NoError(t, err)
	r.now = func() time.Time { return fixedNow }
	r.pause = func(context.Context, time.Duration) {}
	r.machine.pick = func(int) int { return 0 }
	f.router = r
	return f
}

func (f *routerFixture) text(t *testing.T, from, body string) {
	t.Helper()
	require.NoError(t, f.router.Handle(context.Background(), models.Inbound{Type: models.MessageText, From: from, ID: "wamid." + body, Text: body}))
}

func (f *routerFixture) reply(t *testing.T, from, id string) {
	t.Helper()
	require.NoError(t, f.router.Handle(context.Background(), models.Inbound{Type: models.MessageInteractive, From: from, ID: "wamid." + id, ReplyID: id}))
}

func TestNewRouterRequiresCollaborators(t *testing.T) {
	_, err := NewRouter(Dependencies{}, config.ClinicConfig{PhonePattern: `.*`}, staticSettings{}, nil)
	assert.Error(t, err)
}

func TestRouterBookingRoundTrip(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000001"

	f.text(t, user, "احجز")
	assert.Equal(t, []string{"buttons"}, f.messenger.kinds())

	f.reply(t, user, "slot_6pm")
	f.text(t, user, "Ahmad Khaled")
	f.text(t, user, "0791234567")
	f.text(t, user, "تنظيف")

	require.Len(t, f.bookings.inserted, 1)
	b := f.bookings.inserted[0]
	assert.Equal(t, "Ahmad Khaled", b.Name)
	assert.Equal(t, "0791234567", b.Phone)
	assert.Equal(t, "تنظيف الأسنان", b.Service)
	assert.Equal(t, "6 PM", b.Appointment)
	assert.Equal(t, models.BookingStatusNew, b.Status)
	assert.Equal(t, "whatsapp", b.Source)
	assert.Equal(t, fixedNow, b.CreatedAt)

	require.Len(t, f.mirror.bookings, 1)
	assert.Equal(t, "bk-1", f.mirror.bookings[0].ID)

	draft, err := f.store.Draft(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, draft)

	msgs := f.messenger.texts()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "تنظيف الأسنان")
	assert.Contains(t, f.messenger.kinds(), "list")
}

func TestRouterPersistsDraftBetweenMessages(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000002"

	f.text(t, user, "6")

	draft, err := f.store.Draft(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "6 PM", draft.Appointment)

	f.text(t, user, "ابدأ من جديد")
	draft, err = f.store.Draft(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestRouterKeepsSessionIdentity(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000003"

	before, err := f.store.Session(context.Background(), user)
	require.NoError(t, err)

	f.text(t, user, "احجز")

	after, err := f.store.Session(context.Background(), user)
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.True(t, before.WaitingForSlot)
	assert.Equal(t, models.MessageText, before.LastMessageType)
	assert.Equal(t, fixedNow, before.UpdatedAt)
}

func TestRouterCancelNotFoundSkipsUpdate(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000004"

	f.text(t, user, "الغاء الحجز")
	f.text(t, user, "0799999999")

	assert.Empty(t, f.bookings.updates)
	assert.Empty(t, f.mirror.cancellations)
	msgs := f.messenger.texts()
	assert.Equal(t, msgCancelNotFound, msgs[len(msgs)-1])
}

func TestRouterCancelsLatestBooking(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000005"
	f.bookings.active["0791234567"] = &models.Booking{ID: "bk-9", Name: "Sara", Service: "فحص عام", Appointment: "3 PM", Status: models.BookingStatusNew}

	f.text(t, user, "cancel")
	f.text(t, user, "0791234567")

	assert.Equal(t, models.BookingStatusCanceled, f.bookings.updates["bk-9"])
	require.Len(t, f.mirror.cancellations, 1)
	assert.Equal(t, models.BookingStatusCanceled, f.mirror.cancellations[0].Status)
}

func TestRouterQuestionDuringNameResumes(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000006"

	f.text(t, user, "6")
	f.messenger.reset()

	f.text(t, user, "كم سعر التنظيف؟")

	assert.Equal(t, []string{"نعم، متوفر.", msgResumeName}, f.messenger.texts())
	assert.Equal(t, []string{"كم سعر التنظيف؟"}, f.assistant.questions)

	draft, err := f.store.Draft(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Empty(t, draft.Name)
}

func TestRouterAssistantFailureApologises(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.assistant.askErr = errors.New("timeout")

	f.text(t, "962790000007", "is parking available")

	assert.Equal(t, []string{msgGenericError}, f.messenger.texts())
}

func TestRouterNameValidationIsSoft(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.assistant.nameErr = errors.New("quota")
	const user = "962790000008"

	f.text(t, user, "6")
	f.text(t, user, "Nour")

	draft, err := f.store.Draft(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "Nour", draft.Name)
}

func TestRouterSlotButtonsFallBackToText(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.messenger.failButtons = true

	f.text(t, "962790000009", "book")

	assert.Equal(t, []string{slotFallback([]string{"3 PM", "6 PM", "9 PM"})}, f.messenger.texts())
}

func TestRouterOffersGallery(t *testing.T) {
	f := newRouterFixture(t, nil)
	const user = "962790000010"

	f.text(t, user, "offers")
	f.text(t, user, "yes")

	assert.Equal(t, []string{"text", "text", "image", "image", "buttons"}, f.messenger.kinds())
}

func TestRouterLocationSendsPin(t *testing.T) {
	f := newRouterFixture(t, nil)

	f.text(t, "962790000011", "وين موقعكم")

	assert.Equal(t, []string{"location", "text"}, f.messenger.kinds())
}

func TestRouterSaveFailureKeepsUserInformed(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.bookings.insertErr = errors.New("db down")
	const user = "962790000012"

	f.text(t, user, "6")
	f.text(t, user, "Ahmad Khaled")
	f.text(t, user, "0791234567")
	f.reply(t, user, "service_فحص عام")

	msgs := f.messenger.texts()
	assert.Equal(t, msgBookingFailed, msgs[len(msgs)-1])
	assert.Empty(t, f.mirror.bookings)

	draft, err := f.store.Draft(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestRouterVoiceNote(t *testing.T) {
	f := newRouterFixture(t, func(d *Dependencies) {
		d.Voice = fakeVoice{}
		d.Speech = fakeSpeech{transcript: "احجز"}
	})
	f.messenger.media = &whatsapp.Media{Data: []byte("OggS"), MimeType: "audio/ogg"}

	require.NoError(t, f.router.Handle(context.Background(), models.Inbound{
		Type: models.MessageAudio, From: "962790000013", ID: "wamid.voice", MediaID: "m-1",
	}))

	assert.Equal(t, []string{"audio"}, f.messenger.kinds())
}

func TestRouterVoiceFallsBackToText(t *testing.T) {
	f := newRouterFixture(t, func(d *Dependencies) {
		d.Voice = fakeVoice{}
		d.Speech = fakeSpeech{transcript: "is parking available"}
	})
	f.messenger.media = &whatsapp.Media{Data: []byte("OggS")}
	f.messenger.failUpload = true

	require.NoError(t, f.router.Handle(context.Background(), models.Inbound{
		Type: models.MessageAudio, From: "962790000014", ID: "wamid.voice", MediaID: "m-1",
	}))

	assert.Equal(t, []string{"نعم، متوفر."}, f.messenger.texts())
}

func TestRouterEmptyTranscript(t *testing.T) {
	f := newRouterFixture(t, func(d *Dependencies) {
		d.Speech = fakeSpeech{}
	})
	f.messenger.media = &whatsapp.Media{Data: []byte("OggS")}

	require.NoError(t, f.router.Handle(context.Background(), models.Inbound{
		Type: models.MessageAudio, From: "962790000015", ID: "wamid.voice", MediaID: "m-1",
	}))

	assert.Equal(t, []string{msgVoiceNotHeard}, f.messenger.texts())
}

func TestRouterIgnoresUnrecognized(t *testing.T) {
	f := newRouterFixture(t, nil)

	require.NoError(t, f.router.Handle(context.Background(), models.Inbound{Type: models.MessageUnrecognized, From: "962790000016"}))

	assert.Empty(t, f.messenger.kinds())
	sessions, _ := f.store.Len()
	assert.Zero(t, sessions)
}
