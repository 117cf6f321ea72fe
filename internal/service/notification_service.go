package service

import (
	"context"
	"log"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

// ReservationBroadcaster pushes reservation events to connected clients.
type ReservationBroadcaster interface {
	BroadcastReservationEvent(event domain.ReservationNotification)
}

// NotificationService persists notification records and pushes them over
// the websocket hub. Dispatch is fire-and-forget: a failed write is logged
// and never propagated back into the reservation flow.
type NotificationService struct {
	repo        repository.NotificationRepository
	broadcaster ReservationBroadcaster
	retention   time.Duration
}

func NewNotificationService(repo repository.NotificationRepository, broadcaster ReservationBroadcaster, retention time.Duration) *NotificationService {
	return &NotificationService{repo: repo, broadcaster: broadcaster, retention: retention}
}

func (s *NotificationService) Dispatch(ctx context.Context, n *domain.Notification) {
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("NotificationService: error persisting notification: %v", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastReservationEvent(domain.ReservationNotification{
			Type:              n.Type,
			Details:           n.Details,
			EstablishmentName: n.EstablishmentName,
			UserEmail:         n.UserEmail,
			Timestamp:         n.Timestamp,
		})
	}
}

func (s *NotificationService) ListForUser(ctx context.Context, userEmail string, limit int) ([]domain.Notification, error) {
	return s.repo.FindByUser(ctx, userEmail, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userEmail string) (int, error) {
	return s.repo.CountUnread(ctx, userEmail)
}

func (s *NotificationService) MarkRead(ctx context.Context, id int, userEmail string) error {
	return s.repo.MarkRead(ctx, id, userEmail)
}

// CleanupOld drops notifications past the retention window. Run from the
// periodic job in main.
func (s *NotificationService) CleanupOld(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	return s.repo.DeleteOlderThan(ctx, cutoff)
}
