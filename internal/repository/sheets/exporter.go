package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

const (
	bookingsRange      = "Bookings!A:H"
	bookingsHeader     = "Bookings!A1:H1"
	cancellationsRange = "Cancellations!A:F"
	cancellationHeader = "Cancellations!A1:F1"
	timestampLayout    = "2006-01-02 15:04"
)

var (
	bookingColumns      = []interface{}{"ID", "Created At", "Name", "Phone", "Service", "Appointment", "Status", "Source"}
	cancellationColumns = []interface{}{"Canceled At", "ID", "Name", "Phone", "Service", "Appointment"}
)

// Exporter mirrors booking activity into a spreadsheet, one row per event.
type Exporter struct {
	repo   Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter builds an exporter writing timestamps in loc (UTC when nil).
func NewExporter(repo Repository, loc *time.Location, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{repo: repo, loc: loc, logger: logger, now: time.Now}
}

// EnsureHeaders writes the column titles on sheets that are still empty.
func (e *Exporter) EnsureHeaders(ctx context.Context) error {
	for _, h := range []struct {
		check   string
		append  string
		columns []interface{}
	}{
		{bookingsHeader, bookingsRange, bookingColumns},
		{cancellationHeader, cancellationsRange, cancellationColumns},
	} {
		rows, err := e.repo.ReadRange(ctx, h.check)
		if err != nil {
			return err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			continue
		}
		if err := e.repo.WriteRow(ctx, h.append, h.columns); err != nil {
			return err
		}
		e.logger.Info("sheet header written", zap.String("range", h.append))
	}
	return nil
}

// ExportBooking appends a saved booking.
func (e *Exporter) ExportBooking(ctx context.Context, b models.Booking) error {
	row := []interface{}{
		b.ID,
		e.format(b.CreatedAt),
		b.Name,
		b.Phone,
		b.Service,
		b.Appointment,
		string(b.Status),
		b.Source,
	}
	if err := e.repo.WriteRow(ctx, bookingsRange, row); err != nil {
		return fmt.Errorf("export booking %s: %w", b.ID, err)
	}
	return nil
}

// ExportCancellation appends a canceled booking, stamped with the current time.
func (e *Exporter) ExportCancellation(ctx context.Context, b models.Booking) error {
	row := []interface{}{
		e.format(e.now()),
		b.ID,
		b.Name,
		b.Phone,
		b.Service,
		b.Appointment,
	}
	if err := e.repo.WriteRow(ctx, cancellationsRange, row); err != nil {
		return fmt.Errorf("export cancellation %s: %w", b.ID, err)
	}
	return nil
}

func (e *Exporter) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.loc).Format(timestampLayout)
}
