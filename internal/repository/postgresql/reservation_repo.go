package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `id, doc_key, user_email, plate_number, slot_index, slot_number, establishment_id, establishment_name, floor_title, status, latitude, longitude, reserved_at, created_at, updated_at`

// Upsert merges on (establishment_id, doc_key): a retried commit for the
// same logical slot overwrites the earlier row. A violation of the
// one-active-per-user partial index surfaces as ErrActiveReservationExists.
func (r *pgReservationRepository) Upsert(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations
	           (doc_key, user_email, plate_number, slot_index, slot_number, establishment_id, establishment_name, floor_title, status, latitude, longitude, reserved_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	           ON CONFLICT ON CONSTRAINT reservations_establishment_doc_key_key DO UPDATE SET
	               user_email = EXCLUDED.user_email,
	               plate_number = EXCLUDED.plate_number,
	               slot_number = EXCLUDED.slot_number,
	               status = EXCLUDED.status,
	               latitude = EXCLUDED.latitude,
	               longitude = EXCLUDED.longitude,
	               reserved_at = EXCLUDED.reserved_at,
	               updated_at = CURRENT_TIMESTAMP
	           RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		res.DocKey, res.UserEmail,
		sql.NullString{String: res.PlateNumber, Valid: res.PlateNumber != ""},
		res.SlotIndex, res.SlotNumber, res.EstablishmentID, res.EstablishmentName,
		res.FloorTitle, res.Status, res.Latitude, res.Longitude, res.Timestamp,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "reservations_one_active_per_user" {
				return nil, fmt.Errorf("%w: %s", repository.ErrActiveReservationExists, res.UserEmail)
			}
			return nil, fmt.Errorf("%w: reservation key '%s'", repository.ErrDuplicateEntry, res.DocKey)
		}
		return nil, fmt.Errorf("ReservationRepository.Upsert: %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByUser(ctx context.Context, userEmail string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_email = $1 ORDER BY reserved_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userEmail)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUser: %w", err)
	}
	defer rows.Close()
	return scanReservations(rows, "FindByUser")
}

func (r *pgReservationRepository) FindMatching(ctx context.Context, establishmentID string, slotIndex int, userEmail string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE establishment_id = $1 AND slot_index = $2 AND user_email = $3`
	rows, err := r.db.QueryContext(ctx, query, establishmentID, slotIndex, userEmail)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindMatching: %w", err)
	}
	defer rows.Close()
	return scanReservations(rows, "FindMatching")
}

func (r *pgReservationRepository) DeleteMatching(ctx context.Context, establishmentID string, slotIndex int, userEmail string) (int64, error) {
	query := `DELETE FROM reservations WHERE establishment_id = $1 AND slot_index = $2 AND user_email = $3`
	result, err := r.db.ExecContext(ctx, query, establishmentID, slotIndex, userEmail)
	if err != nil {
		return 0, fmt.Errorf("ReservationRepository.DeleteMatching: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ReservationRepository.DeleteMatching (checking rows affected): %w", err)
	}
	return rowsAffected, nil
}

func scanReservations(rows *sql.Rows, op string) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		var plateNumber sql.NullString
		if err := rows.Scan(
			&res.ID, &res.DocKey, &res.UserEmail, &plateNumber, &res.SlotIndex, &res.SlotNumber,
			&res.EstablishmentID, &res.EstablishmentName, &res.FloorTitle, &res.Status,
			&res.Latitude, &res.Longitude, &res.Timestamp, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ReservationRepository.%s (scanning row): %w", op, err)
		}
		if plateNumber.Valid {
			res.PlateNumber = plateNumber.String
		}
		res.Timestamp = res.Timestamp.In(time.UTC)
		res.CreatedAt = res.CreatedAt.In(time.UTC)
		res.UpdatedAt = res.UpdatedAt.In(time.UTC)
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.%s (rows error): %w", op, err)
	}
	return reservations, nil
}
