package service

import (
	"context"
	"testing"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users  map[string]*domain.User // by email
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := r.users[user.Email]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	r.nextID++
	stored := *user
	stored.ID = r.nextID
	r.users[user.Email] = &stored
	out := stored
	return &out, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, email, name, carPlateNumber string) (*domain.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if name != "" {
		user.Name = name
	}
	if carPlateNumber != "" {
		user.CarPlateNumber = carPlateNumber
	}
	out := *user
	return &out, nil
}

func TestRegisterHashesPasswordAndDefaultsRole(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, "test-secret", 24*time.Hour)

	user, err := svc.Register(ctx, domain.RegisterUserDTO{
		Email:          "ana@example.com",
		Password:       "secret123",
		Name:           "Ana",
		CarPlateNumber: "ABC-123",
		Role:           "superuser", // anything but admin collapses to driver
	})
	require.NoError(t, err)
	assert.Equal(t, "driver", user.Role)
	assert.Empty(t, user.Password)

	stored := repo.users["ana@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeUserRepo(), "test-secret", 24*time.Hour)

	dto := domain.RegisterUserDTO{Email: "ana@example.com", Password: "secret123", Name: "Ana"}
	_, err := svc.Register(ctx, dto)
	require.NoError(t, err)

	_, err = svc.Register(ctx, dto)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginAndValidateToken(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeUserRepo(), "test-secret", 24*time.Hour)

	_, err := svc.Register(ctx, domain.RegisterUserDTO{
		Email: "ana@example.com", Password: "secret123", Name: "Ana", Role: "admin",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, domain.LoginUserDTO{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin", resp.Role)

	_, claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, "Ana", claims["name"])
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newFakeUserRepo(), "test-secret", 24*time.Hour)

	_, err := svc.Register(ctx, domain.RegisterUserDTO{Email: "ana@example.com", Password: "secret123", Name: "Ana"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginUserDTO{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginUserDTO{Email: "ghost@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", 24*time.Hour)

	_, _, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Signed with a different secret.
	other := NewAuthService(newFakeUserRepo(), "other-secret", 24*time.Hour)
	ctx := context.Background()
	_, regErr := other.Register(ctx, domain.RegisterUserDTO{Email: "ana@example.com", Password: "secret123", Name: "Ana"})
	require.NoError(t, regErr)
	resp, loginErr := other.Login(ctx, domain.LoginUserDTO{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, loginErr)

	_, _, err = svc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
