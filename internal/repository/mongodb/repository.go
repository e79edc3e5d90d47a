package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

const (
	bookingsCollection = "bookings"
	settingsCollection = "clinic_settings"
)

// ErrBookingNotFound is returned when a status update matches no booking.
var ErrBookingNotFound = errors.New("booking not found")

type bookingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Phone       string             `bson:"phone"`
	Service     string             `bson:"service"`
	Appointment string             `bson:"appointment"`
	Status      string             `bson:"status"`
	Source      string             `bson:"source,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at,omitempty"`
}

func (d bookingDocument) toModel() models.Booking {
	return models.Booking{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Phone:       d.Phone,
		Service:     d.Service,
		Appointment: d.Appointment,
		Status:      models.BookingStatus(d.Status),
		Source:      d.Source,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// Repository stores bookings and clinic settings.
type Repository struct {
	client   *mongo.Client
	bookings *mongo.Collection
	settings *mongo.Collection
	logger   *zap.Logger
}

// Connect dials MongoDB, verifies the connection and returns a repository
// that owns the client.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := NewRepository(client.Database(dbName), logger)
	repo.client = client
	return repo, nil
}

// NewRepository wraps an existing database handle. Close is a no-op for
// repositories built this way.
func NewRepository(db *mongo.Database, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		bookings: db.Collection(bookingsCollection),
		settings: db.Collection(settingsCollection),
		logger:   logger,
	}
}

// EnsureIndexes creates the lookup indexes used by the bot.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.bookings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	_, err = r.settings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clinic_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create settings index: %w", err)
	}
	return nil
}

// InsertBooking stores booking and returns it with its generated id.
func (r *Repository) InsertBooking(ctx context.Context, booking models.Booking) (models.Booking, error) {
	doc := bookingDocument{
		ID:          primitive.NewObjectID(),
		Name:        booking.Name,
		Phone:       booking.Phone,
		Service:     booking.Service,
		Appointment: booking.Appointment,
		Status:      string(booking.Status),
		Source:      booking.Source,
		CreatedAt:   booking.CreatedAt,
	}
	if doc.Status == "" {
		doc.Status = string(models.BookingStatusNew)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := r.bookings.InsertOne(ctx, doc); err != nil {
		return models.Booking{}, fmt.Errorf("failed to insert booking: %w", err)
	}

	r.logger.Debug("booking inserted", zap.String("booking_id", doc.ID.Hex()))
	return doc.toModel(), nil
}

// FindLatestActiveBookingByPhone returns the newest booking for phone that has
// not been canceled, or nil when there is none.
func (r *Repository) FindLatestActiveBookingByPhone(ctx context.Context, phone string) (*models.Booking, error) {
	filter := bson.D{
		{Key: "phone", Value: phone},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: string(models.BookingStatusCanceled)}}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc bookingDocument
	err := r.bookings.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	booking := doc.toModel()
	return &booking, nil
}

// UpdateBookingStatus sets the status of the booking with the given id.
func (r *Repository) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid booking id %q: %w", id, err)
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(status)},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	res, err := r.bookings.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListBookingsBetween returns bookings created in [from, to), oldest first.
func (r *Repository) ListBookingsBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	filter := bson.D{{Key: "created_at", Value: bson.D{
		{Key: "$gte", Value: from.UTC()},
		{Key: "$lt", Value: to.UTC()},
	}}}
	cursor, err := r.bookings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]models.Booking, 0, len(docs))
	for _, d := range docs {
		bookings = append(bookings, d.toModel())
	}
	return bookings, nil
}

// LoadClinicSettings returns the settings document for clinicID, or nil when
// none is stored.
func (r *Repository) LoadClinicSettings(ctx context.Context, clinicID string) (*models.ClinicSettings, error) {
	var settings models.ClinicSettings
	err := r.settings.FindOne(ctx, bson.D{{Key: "clinic_id", Value: clinicID}}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load clinic settings: %w", err)
	}
	return &settings, nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}
