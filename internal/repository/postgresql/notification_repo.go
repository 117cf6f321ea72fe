package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgNotificationRepository struct {
	db *sql.DB
}

func NewPgNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &pgNotificationRepository{db: db}
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (type, details, establishment_id, establishment_name, user_email, read, event_time)
	           VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	           RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		n.Type, n.Details,
		sql.NullString{String: n.EstablishmentID, Valid: n.EstablishmentID != ""},
		n.EstablishmentName, n.UserEmail, n.Timestamp,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("NotificationRepository.Create: %w", err)
	}
	n.CreatedAt = n.CreatedAt.In(time.UTC)
	return nil
}

func (r *pgNotificationRepository) FindByUser(ctx context.Context, userEmail string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, type, details, establishment_id, establishment_name, user_email, read, event_time, created_at
	           FROM notifications WHERE user_email = $1 ORDER BY event_time DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userEmail, limit)
	if err != nil {
		return nil, fmt.Errorf("NotificationRepository.FindByUser: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var establishmentID sql.NullString
		if err := rows.Scan(
			&n.ID, &n.Type, &n.Details, &establishmentID, &n.EstablishmentName,
			&n.UserEmail, &n.Read, &n.Timestamp, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("NotificationRepository.FindByUser (scanning row): %w", err)
		}
		if establishmentID.Valid {
			n.EstablishmentID = establishmentID.String
		}
		n.Timestamp = n.Timestamp.In(time.UTC)
		n.CreatedAt = n.CreatedAt.In(time.UTC)
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("NotificationRepository.FindByUser (rows error): %w", err)
	}
	return notifications, nil
}

func (r *pgNotificationRepository) CountUnread(ctx context.Context, userEmail string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_email = $1 AND read = FALSE`
	if err := r.db.QueryRowContext(ctx, query, userEmail).Scan(&count); err != nil {
		return 0, fmt.Errorf("NotificationRepository.CountUnread: %w", err)
	}
	return count, nil
}

func (r *pgNotificationRepository) MarkRead(ctx context.Context, id int, userEmail string) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_email = $2`
	result, err := r.db.ExecContext(ctx, query, id, userEmail)
	if err != nil {
		return fmt.Errorf("NotificationRepository.MarkRead: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("NotificationRepository.MarkRead (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE event_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("NotificationRepository.DeleteOlderThan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("NotificationRepository.DeleteOlderThan (checking rows affected): %w", err)
	}
	return rowsAffected, nil
}
