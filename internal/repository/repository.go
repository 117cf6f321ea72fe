package repository

import (
	"context"
	"errors"
	"time"

	"parking_reserve/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// ErrActiveReservationExists is returned when the partial unique index on
// active reservations rejects a write: the user already holds a reserved
// slot somewhere. This is the server-side backstop for the one-reservation
// rule; the engine enforces the same rule before the write ever happens.
var ErrActiveReservationExists = errors.New("user already has an active reservation")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	UpdateProfile(ctx context.Context, email string, name string, carPlateNumber string) (*domain.User, error)
}

type EstablishmentRepository interface {
	Create(ctx context.Context, est *domain.Establishment) (*domain.Establishment, error)
	FindByID(ctx context.Context, id string) (*domain.Establishment, error)
	FindByName(ctx context.Context, name string) (*domain.Establishment, error)
	FindAll(ctx context.Context) ([]domain.Establishment, error)
	Update(ctx context.Context, est *domain.Establishment) (*domain.Establishment, error)
	Delete(ctx context.Context, id string) error
}

// ReservationRepository owns the durable reservation records. Upsert merges
// on (establishment_id, doc_key) so a retried commit for the same logical
// slot overwrites the earlier row instead of duplicating it.
type ReservationRepository interface {
	Upsert(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	FindByUser(ctx context.Context, userEmail string) ([]domain.Reservation, error)
	FindMatching(ctx context.Context, establishmentID string, slotIndex int, userEmail string) ([]domain.Reservation, error)
	// DeleteMatching removes every row matching the triple and reports how
	// many went away. Zero matches is not an error; duplicates left over
	// from older write bugs are all swept.
	DeleteMatching(ctx context.Context, establishmentID string, slotIndex int, userEmail string) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	FindByUser(ctx context.Context, userEmail string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userEmail string) (int, error)
	MarkRead(ctx context.Context, id int, userEmail string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
