package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/aulanet/internal/shared"
)

type mockRepo struct {
	users map[string]*User
}

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (m *mockRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newMockRepo(t *testing.T) *mockRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockRepo{users: map[string]*User{
		"teacher@example.org": {
			ID:           "u1",
			Email:        "teacher@example.org",
			PasswordHash: string(hash),
			IsActive:     true,
		},
		"disabled@example.org": {
			ID:           "u2",
			Email:        "disabled@example.org",
			PasswordHash: string(hash),
			IsActive:     false,
		},
	}}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMockRepo(t))
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "teacher@example.org", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(newMockRepo(t))

	_, err := svc.Authenticate(context.Background(), "teacher@example.org", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMockRepo(t))

	_, err := svc.Authenticate(context.Background(), "nobody@example.org", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc := NewService(newMockRepo(t))

	_, err := svc.Authenticate(context.Background(), "disabled@example.org", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
