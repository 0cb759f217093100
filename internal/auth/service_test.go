package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

const testSecret = "unit-test-signing-secret"

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeUser(t *testing.T, password string) *User {
	t.Helper()
	return &User{
		ID:           uuid.New(),
		Email:        "reviewer@example.com",
		Name:         "Pat Reviewer",
		PasswordHash: hashOf(t, password),
		Roles:        []string{"reviewer", "legal"},
		IsActive:     true,
	}
}

func TestRegisterIssuesTokens(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	mockRepo.On("GetUserByEmail", ctx, "new.author@example.com").Return(nil, nil)
	mockRepo.On("CreateUser", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

	user, tokens, err := service.Register(ctx, RegisterRequest{
		Email:    "New.Author@example.com",
		Name:     "New Author",
		Password: "correct horse battery",
	})

	require.NoError(t, err)
	assert.Equal(t, "new.author@example.com", user.Email)
	assert.Equal(t, []string{"author"}, []string(user.Roles))
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.EqualValues(t, 900, tokens.ExpiresIn)

	claims, err := service.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, []string{"author"}, claims.Roles)

	mockRepo.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	existing := activeUser(t, "whatever")
	mockRepo.On("GetUserByEmail", ctx, "reviewer@example.com").Return(existing, nil)

	_, _, err := service.Register(ctx, RegisterRequest{
		Email:    "reviewer@example.com",
		Name:     "Imposter",
		Password: "password123",
	})

	assert.ErrorIs(t, err, ErrEmailTaken)
	mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestLoginSuccess(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "s3cret-pass")
	mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)

	got, tokens, err := service.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := service.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"reviewer", "legal"}, claims.Roles)
}

func TestLoginWrongPassword(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "s3cret-pass")
	mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)

	_, _, err := service.Login(ctx, LoginRequest{Email: user.Email, Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "s3cret-pass")
	user.IsActive = false
	mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)

	_, _, err := service.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	mockRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, nil)

	_, _, err := service.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "anything"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRoundTrip(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "s3cret-pass")
	mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)
	mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil)

	_, tokens, err := service.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	got, refreshed, err := service.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := service.VerifyAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "s3cret-pass")
	mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)

	_, tokens, err := service.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	// An access token must not mint a new pair.
	_, _, err = service.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()

	user := activeUser(t, "s3cret-pass")
	mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)

	issuer := NewService(mockRepo, testSecret, nil)
	_, tokens, err := issuer.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	verifier := NewService(mockRepo, "a different secret", nil)
	_, err = verifier.VerifyAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	service := NewService(new(MockRepository), testSecret, nil)
	_, err := service.VerifyAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "old-pass")
	mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil)
	mockRepo.On("UpdatePassword", ctx, user.ID, mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-pass-123")) == nil
	})).Return(nil)

	err := service.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "old-pass",
		NewPassword:     "new-pass-123",
	})

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, testSecret, nil)
	ctx := context.Background()

	user := activeUser(t, "old-pass")
	mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil)

	err := service.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "nope",
		NewPassword:     "new-pass-123",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	mockRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}
