package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

const dateLayout = "2006-01-02"

// BookingLister loads bookings created in a half-open time range.
type BookingLister interface {
	ListBookingsBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

// ServiceCount is the number of bookings for one service.
type ServiceCount struct {
	Service string
	Count   int
}

// Digest summarises one clinic day.
type Digest struct {
	Day       time.Time
	Total     int
	New       int
	Canceled  int
	ByService []ServiceCount
}

// Service builds booking digests for WhatsApp summaries.
type Service struct {
	bookings BookingLister
	loc      *time.Location
	logger   *zap.Logger
}

// NewService wires a new reporting service instance. Days are cut at
// midnight in loc (UTC when nil).
func NewService(bookings BookingLister, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{bookings: bookings, loc: loc, logger: logger}
}

// DailyDigest aggregates the bookings created on the clinic day containing at.
func (s *Service) DailyDigest(ctx context.Context, at time.Time) (Digest, error) {
	local := at.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	bookings, err := s.bookings.ListBookingsBetween(ctx, start, end)
	if err != nil {
		return Digest{}, fmt.Errorf("load bookings for %s: %w", start.Format(dateLayout), err)
	}

	d := Digest{Day: start, Total: len(bookings)}
	perService := make(map[string]int)
	for _, b := range bookings {
		switch b.Status {
		case models.BookingStatusCanceled:
			d.Canceled++
		default:
			d.New++
		}
		name := b.Service
		if name == "" {
			name = "غير محدد"
		}
		perService[name]++
	}

	for name, count := range perService {
		d.ByService = append(d.ByService, ServiceCount{Service: name, Count: count})
	}
	sort.Slice(d.ByService, func(i, j int) bool {
		if d.ByService[i].Count != d.ByService[j].Count {
			return d.ByService[i].Count > d.ByService[j].Count
		}
		return d.ByService[i].Service < d.ByService[j].Service
	})

	s.logger.Debug("daily digest computed",
		zap.String("day", start.Format(dateLayout)),
		zap.Int("total", d.Total),
		zap.Int("canceled", d.Canceled))
	return d, nil
}

// Format renders the digest as a WhatsApp message.
func (d Digest) Format(clinicName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 ملخص حجوزات %s (%s)\n", clinicName, d.Day.Format(dateLayout))
	if d.Total == 0 {
		b.WriteString("لا توجد حجوزات اليوم.")
		return b.String()
	}

	fmt.Fprintf(&b, "📅 إجمالي الحجوزات: %d\n", d.Total)
	fmt.Fprintf(&b, "✅ فعّالة: %d\n", d.New)
	fmt.Fprintf(&b, "❌ ملغاة: %d", d.Canceled)
	if len(d.ByService) > 0 {
		b.WriteString("\n\n💊 حسب الخدمة:")
		for _, sc := range d.ByService {
			fmt.Fprintf(&b, "\n• %s: %d", sc.Service, sc.Count)
		}
	}
	return b.String()
}
