package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (email, password, name, car_plate_number, role)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Password, user.Name,
		sql.NullString{String: user.CarPlateNumber, Valid: user.CarPlateNumber != ""},
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: email '%s' is already registered", repository.ErrDuplicateEntry, user.Email)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, password, name, car_plate_number, role, created_at, updated_at FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "FindByEmail")
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT id, email, password, name, car_plate_number, role, created_at, updated_at FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, email string, name string, carPlateNumber string) (*domain.User, error) {
	query := `UPDATE users
	           SET name = COALESCE(NULLIF($2, ''), name),
	               car_plate_number = COALESCE(NULLIF($3, ''), car_plate_number),
	               updated_at = CURRENT_TIMESTAMP
	           WHERE email = $1
	           RETURNING id, email, password, name, car_plate_number, role, created_at, updated_at`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email, name, carPlateNumber), "UpdateProfile")
}

func (r *pgUserRepository) scanOne(row rowScanner, op string) (*domain.User, error) {
	user := &domain.User{}
	var carPlateNumber sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.Password, &user.Name,
		&carPlateNumber, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.%s: %w", op, err)
	}
	if carPlateNumber.Valid {
		user.CarPlateNumber = carPlateNumber.String
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}
