package clinic

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/config"
	"github.com/smileclinic/whatsbot/internal/domain/models"
)

// DefaultClinicID is the settings document the bot reads.
const DefaultClinicID = "default"

// SettingsLoader reads clinic settings from storage. A nil result means none
// are stored.
type SettingsLoader interface {
	LoadClinicSettings(ctx context.Context, clinicID string) (*models.ClinicSettings, error)
}

// Provider serves the current clinic name and booking times. Values come from
// storage when present and fall back to configuration otherwise.
type Provider struct {
	loader   SettingsLoader
	clinicID string
	defaults models.ClinicSettings
	logger   *zap.Logger

	mu      sync.RWMutex
	current models.ClinicSettings
}

// NewProvider builds a Provider seeded with the configured defaults. loader
// may be nil, in which case Refresh keeps the defaults.
func NewProvider(loader SettingsLoader, cfg config.ClinicConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := models.ClinicSettings{
		ClinicID:     DefaultClinicID,
		ClinicName:   cfg.Name,
		BookingTimes: slices.Clone(cfg.BookingTimes),
	}
	return &Provider{
		loader:   loader,
		clinicID: DefaultClinicID,
		defaults: defaults,
		logger:   logger,
		current:  defaults,
	}
}

// BookingTimes returns a copy of the configured slot labels.
func (p *Provider) BookingTimes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.current.BookingTimes)
}

// ClinicName returns the display name of the clinic.
func (p *Provider) ClinicName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.ClinicName
}

// Refresh reloads settings from storage. Empty stored fields keep their
// configured default. On error the previous values stay in place.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.loader == nil {
		return nil
	}

	stored, err := p.loader.LoadClinicSettings(ctx, p.clinicID)
	if err != nil {
		return fmt.Errorf("refresh clinic settings: %w", err)
	}

	next := p.defaults
	next.BookingTimes = slices.Clone(p.defaults.BookingTimes)
	if stored != nil {
		if stored.ClinicName != "" {
			next.ClinicName = stored.ClinicName
		}
		if len(stored.BookingTimes) > 0 {
			next.BookingTimes = slices.Clone(stored.BookingTimes)
		}
	}

	p.mu.Lock()
	p.current = next
	p.mu.Unlock()

	p.logger.Debug("clinic settings refreshed",
		zap.String("clinic_name", next.ClinicName),
		zap.Strings("booking_times", next.BookingTimes),
		zap.Bool("stored", stored != nil))
	return nil
}
