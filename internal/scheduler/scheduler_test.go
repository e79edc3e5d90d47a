package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/service/reporting"
)

type stubDigest struct {
	digest reporting.Digest
	err    error
}

func (s stubDigest) DailyDigest(context.Context, time.Time) (reporting.Digest, error) {
	return s.digest, s.err
}

type stubSender struct {
	sent []models.OutboundMessageRequest
}

func (s *stubSender) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	s.sent = append(s.sent, req)
	return nil
}

type stubSweeper struct{ swept []time.Time }

func (s *stubSweeper) Sweep(now time.Time) { s.swept = append(s.swept, now) }

type stubSettings struct {
	refreshed int
	err       error
}

func (s *stubSettings) Refresh(context.Context) error {
	s.refreshed++
	return s.err
}

func (s *stubSettings) ClinicName() string { return "Smile Clinic" }

func TestRegisterEnabledJobs(t *testing.T) {
	s := NewScheduler(Jobs{
		Digest:     stubDigest{},
		Sender:     &stubSender{},
		DigestTo:   "962790000000",
		DigestSpec: "0 21 * * *",
		Guard:      &stubSweeper{},
		Settings:   &stubSettings{},
	}, nil, nil)

	require.NoError(t, s.Register())
	assert.Len(t, s.cron.Entries(), 3)
}

func TestRegisterSkipsDigestWithoutRecipient(t *testing.T) {
	s := NewScheduler(Jobs{Digest: stubDigest{}, Sender: &stubSender{}, DigestSpec: "0 21 * * *", Guard: &stubSweeper{}}, nil, nil)

	require.NoError(t, s.Register())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := NewScheduler(Jobs{Digest: stubDigest{}, Sender: &stubSender{}, DigestTo: "1", DigestSpec: "every evening"}, nil, nil)

	assert.Error(t, s.Register())
}

func TestSendDailyDigest(t *testing.T) {
	sender := &stubSender{}
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	s := NewScheduler(Jobs{
		Digest:   stubDigest{digest: reporting.Digest{Day: day, Total: 1, New: 1}},
		Sender:   sender,
		DigestTo: "962790000000",
		Settings: &stubSettings{},
	}, nil, nil)

	s.sendDailyDigest()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "962790000000", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Message, "Smile Clinic")
}

func TestSendDailyDigestSkipsOnError(t *testing.T) {
	sender := &stubSender{}
	s := NewScheduler(Jobs{Digest: stubDigest{err: errors.New("db down")}, Sender: sender, DigestTo: "1"}, nil, nil)

	s.sendDailyDigest()

	assert.Empty(t, sender.sent)
}

func TestSweepAndRefresh(t *testing.T) {
	sweeper := &stubSweeper{}
	settings := &stubSettings{err: errors.New("timeout")}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(Jobs{Guard: sweeper, Settings: settings}, nil, nil)
	s.now = func() time.Time { return now }

	s.sweepGuard()
	s.refreshSettings()

	assert.Equal(t, []time.Time{now}, sweeper.swept)
	assert.Equal(t, 1, settings.refreshed)
}
