package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileclinic/whatsbot/internal/config"
	"github.com/smileclinic/whatsbot/internal/domain/models"
)

type stubLoader struct {
	settings *models.ClinicSettings
	err      error
	asked    string
}

func (s *stubLoader) LoadClinicSettings(_ context.Context, clinicID string) (*models.ClinicSettings, error) {
	s.asked = clinicID
	return s.settings, s.err
}

var testConfig = config.ClinicConfig{Name: "Ibtisama Clinic", BookingTimes: []string{"3 PM", "6 PM", "9 PM"}}

func TestProviderDefaults(t *testing.T) {
	p := NewProvider(nil, testConfig, nil)

	assert.Equal(t, "Ibtisama Clinic", p.ClinicName())
	assert.Equal(t, []string{"3 PM", "6 PM", "9 PM"}, p.BookingTimes())
	assert.NoError(t, p.Refresh(context.Background()))
}

func TestProviderRefresh(t *testing.T) {
	loader := &stubLoader{settings: &models.ClinicSettings{ClinicName: "Smile Clinic", BookingTimes: []string{"4 PM"}}}
	p := NewProvider(loader, testConfig, nil)

	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, DefaultClinicID, loader.asked)
	assert.Equal(t, "Smile Clinic", p.ClinicName())
	assert.Equal(t, []string{"4 PM"}, p.BookingTimes())
}

func TestProviderRefreshKeepsDefaultsForEmptyFields(t *testing.T) {
	loader := &stubLoader{settings: &models.ClinicSettings{BookingTimes: []string{"10 AM"}}}
	p := NewProvider(loader, testConfig, nil)

	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, "Ibtisama Clinic", p.ClinicName())
	assert.Equal(t, []string{"10 AM"}, p.BookingTimes())

	loader.settings = nil
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, []string{"3 PM", "6 PM", "9 PM"}, p.BookingTimes())
}

func TestProviderRefreshErrorKeepsPrevious(t *testing.T) {
	loader := &stubLoader{settings: &models.ClinicSettings{ClinicName: "Smile Clinic"}}
	p := NewProvider(loader, testConfig, nil)
	require.NoError(t, p.Refresh(context.Background()))

	loader.err = errors.New("connection refused")
	assert.Error(t, p.Refresh(context.Background()))
	assert.Equal(t, "Smile Clinic", p.ClinicName())
}

func TestBookingTimesReturnsCopy(t *testing.T) {
	p := NewProvider(nil, testConfig, nil)

	times := p.BookingTimes()
	times[0] = "mutated"

	assert.Equal(t, "3 PM", p.BookingTimes()[0])
}
