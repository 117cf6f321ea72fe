package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/google/uuid"
)

type pgEstablishmentRepository struct {
	db *sql.DB
}

func NewPgEstablishmentRepository(db *sql.DB) repository.EstablishmentRepository {
	return &pgEstablishmentRepository{db: db}
}

const establishmentColumns = `id, name, address, latitude, longitude, open_time, close_time, parking_pay, total_slots, floor_details, created_at, updated_at`

func (r *pgEstablishmentRepository) Create(ctx context.Context, est *domain.Establishment) (*domain.Establishment, error) {
	if est.ID == "" {
		est.ID = uuid.NewString()
	}
	floorDetails, err := marshalFloorDetails(est.FloorDetails)
	if err != nil {
		return nil, fmt.Errorf("EstablishmentRepository.Create: %w", err)
	}

	query := `INSERT INTO establishments (id, name, address, latitude, longitude, open_time, close_time, parking_pay, total_slots, floor_details)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	           RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		est.ID, est.Name,
		sql.NullString{String: est.Address, Valid: est.Address != ""},
		est.Latitude, est.Longitude,
		sql.NullString{String: est.OpenTime, Valid: est.OpenTime != ""},
		sql.NullString{String: est.CloseTime, Valid: est.CloseTime != ""},
		est.ParkingPay, est.TotalSlots, floorDetails,
	).Scan(&est.CreatedAt, &est.UpdatedAt)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: establishment '%s' already exists", repository.ErrDuplicateEntry, est.Name)
		}
		return nil, fmt.Errorf("EstablishmentRepository.Create: %w", err)
	}
	est.CreatedAt = est.CreatedAt.In(time.UTC)
	est.UpdatedAt = est.UpdatedAt.In(time.UTC)
	return est, nil
}

func (r *pgEstablishmentRepository) FindByID(ctx context.Context, id string) (*domain.Establishment, error) {
	query := `SELECT ` + establishmentColumns + ` FROM establishments WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgEstablishmentRepository) FindByName(ctx context.Context, name string) (*domain.Establishment, error) {
	query := `SELECT ` + establishmentColumns + ` FROM establishments WHERE name = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name), "FindByName")
}

func (r *pgEstablishmentRepository) FindAll(ctx context.Context) ([]domain.Establishment, error) {
	query := `SELECT ` + establishmentColumns + ` FROM establishments ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("EstablishmentRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var ests []domain.Establishment
	for rows.Next() {
		est, err := scanEstablishment(rows)
		if err != nil {
			return nil, fmt.Errorf("EstablishmentRepository.FindAll (scanning row): %w", err)
		}
		ests = append(ests, *est)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("EstablishmentRepository.FindAll (rows error): %w", err)
	}
	return ests, nil
}

func (r *pgEstablishmentRepository) Update(ctx context.Context, est *domain.Establishment) (*domain.Establishment, error) {
	floorDetails, err := marshalFloorDetails(est.FloorDetails)
	if err != nil {
		return nil, fmt.Errorf("EstablishmentRepository.Update: %w", err)
	}

	query := `UPDATE establishments
	           SET name = $1, address = $2, latitude = $3, longitude = $4, open_time = $5, close_time = $6,
	               parking_pay = $7, total_slots = $8, floor_details = $9, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $10
	           RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query,
		est.Name,
		sql.NullString{String: est.Address, Valid: est.Address != ""},
		est.Latitude, est.Longitude,
		sql.NullString{String: est.OpenTime, Valid: est.OpenTime != ""},
		sql.NullString{String: est.CloseTime, Valid: est.CloseTime != ""},
		est.ParkingPay, est.TotalSlots, floorDetails, est.ID,
	).Scan(&est.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: establishment '%s' already exists", repository.ErrDuplicateEntry, est.Name)
		}
		return nil, fmt.Errorf("EstablishmentRepository.Update: %w", err)
	}
	est.UpdatedAt = est.UpdatedAt.In(time.UTC)
	return est, nil
}

func (r *pgEstablishmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM establishments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("EstablishmentRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("EstablishmentRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *pgEstablishmentRepository) scanOne(row rowScanner, op string) (*domain.Establishment, error) {
	est, err := scanEstablishment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("EstablishmentRepository.%s: %w", op, err)
	}
	return est, nil
}

func scanEstablishment(row rowScanner) (*domain.Establishment, error) {
	est := &domain.Establishment{}
	var address, openTime, closeTime sql.NullString
	var floorDetails []byte

	err := row.Scan(
		&est.ID, &est.Name, &address, &est.Latitude, &est.Longitude,
		&openTime, &closeTime, &est.ParkingPay, &est.TotalSlots, &floorDetails,
		&est.CreatedAt, &est.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if address.Valid {
		est.Address = address.String
	}
	if openTime.Valid {
		est.OpenTime = openTime.String
	}
	if closeTime.Valid {
		est.CloseTime = closeTime.String
	}
	if len(floorDetails) > 0 {
		if err := json.Unmarshal(floorDetails, &est.FloorDetails); err != nil {
			return nil, fmt.Errorf("decoding floor_details: %w", err)
		}
	}
	est.CreatedAt = est.CreatedAt.In(time.UTC)
	est.UpdatedAt = est.UpdatedAt.In(time.UTC)
	return est, nil
}

func marshalFloorDetails(floors []domain.FloorDescriptor) (any, error) {
	if len(floors) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(floors)
	if err != nil {
		return nil, fmt.Errorf("encoding floor_details: %w", err)
	}
	return raw, nil
}
