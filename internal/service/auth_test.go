package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/auth"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/notifier"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/token"
	apperrors "github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByRefreshToken(ctx context.Context, id, tokenHash string) (*domain.User, error) {
	args := m.Called(ctx, id, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByPasswordResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string) (string, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Error(1)
}

func (m *mockUserRepository) ConsumePasswordResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	args := m.Called(ctx, tokenHash, passwordHash, now)
	return args.String(0), args.Error(1)
}

func (m *mockUserRepository) SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockUserRepository) SetRefreshToken(ctx context.Context, userID, tokenHash string) error {
	args := m.Called(ctx, userID, tokenHash)
	return args.Error(0)
}

func (m *mockUserRepository) RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string) error {
	args := m.Called(ctx, userID, oldHash, newHash)
	return args.Error(0)
}

func (m *mockUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock Event Publisher ---

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishUserVerified(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishUserPasswordReset(ctx context.Context, userID, email string) error {
	args := m.Called(ctx, userID, email)
	return args.Error(0)
}

// --- Mock Notifier ---

// mockNotifier records each sent message; guarded because the reset mail
// goes out on a goroutine.
type mockNotifier struct {
	mu       sync.Mutex
	sent     []notifier.Message
	err      error
	delivery chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{delivery: make(chan struct{}, 8)}
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Send(_ context.Context, msg notifier.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	m.delivery <- struct{}{}
	return nil
}

func (m *mockNotifier) messages() []notifier.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notifier.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func newTestService(userRepo *mockUserRepository, events *mockEventPublisher, n notifier.Notifier) *AuthService {
	return NewAuthService(userRepo, newTestJWTManager(), n, events, newTestLogger(), "http://localhost:3000")
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// assertAppMessage checks the client-facing message on an AppError.
func assertAppMessage(t *testing.T, err error, want string) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, want, appErr.Message)
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	sender := newMockNotifier()
	svc := newTestService(userRepo, events, sender)
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "john@example.com").Return(nil, apperrors.NotFound("user not found"))
	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	events.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	input := RegisterInput{
		Name:     "John",
		Email:    "john@example.com",
		Password: "p1",
	}

	user, err := svc.Register(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "john@example.com", user.Email)
	assert.Equal(t, "John", user.Name)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.False(t, user.IsVerified)
	require.NotNil(t, user.VerificationToken)
	assert.NotEmpty(t, user.VerificationToken.Hash)
	assert.Nil(t, user.VerificationToken.ExpiresAt)
	assert.NotEqual(t, "p1", user.PasswordHash)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "john@example.com", msgs[0].To)
	assert.Equal(t, "Verify your Email", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "http://localhost:3000/api/v1/user/verify/")

	userRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	existing := &domain.User{ID: "user-123", Email: "john@example.com"}
	userRepo.On("GetByEmail", ctx, "john@example.com").Return(existing, nil)

	input := RegisterInput{
		Name:     "John",
		Email:    "john@example.com",
		Password: "p1",
	}

	user, err := svc.Register(ctx, input)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	userRepo.AssertExpectations(t)
}

func TestRegister_MissingFields(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "John", Email: "john@example.com"})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_MailFailureFailsRegistration(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	sender := newMockNotifier()
	sender.err = assert.AnError
	svc := newTestService(userRepo, events, sender)
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "john@example.com").Return(nil, apperrors.NotFound("user not found"))
	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	input := RegisterInput{
		Name:     "John",
		Email:    "john@example.com",
		Password: "p1",
	}

	user, err := svc.Register(ctx, input)

	assert.Nil(t, user)
	assert.Error(t, err)
	events.AssertNotCalled(t, "PublishUserRegistered", mock.Anything, mock.Anything)
}

// --- Verify Tests ---

func TestVerify_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	raw := "a-verification-token"
	userRepo.On("ConsumeVerificationToken", ctx, token.Hash(raw)).Return("user-123", nil)
	events.On("PublishUserVerified", ctx, "user-123").Return(nil)

	err := svc.Verify(ctx, raw)

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestVerify_UnknownToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	raw := "wrong-token"
	userRepo.On("ConsumeVerificationToken", ctx, token.Hash(raw)).Return("", apperrors.NotFound("user not found"))

	err := svc.Verify(ctx, raw)

	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerify_EmptyToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	err := svc.Verify(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	userRepo.AssertNotCalled(t, "ConsumeVerificationToken", mock.Anything, mock.Anything)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Name:         "John",
		Email:        "john@example.com",
		PasswordHash: hashForTest("p1"),
		Role:         domain.RoleUser,
		IsVerified:   true,
	}

	userRepo.On("GetByEmail", ctx, "john@example.com").Return(existing, nil)
	userRepo.On("SetRefreshToken", ctx, "user-123", mock.AnythingOfType("string")).Return(nil)

	user, pair, err := svc.Login(ctx, LoginInput{Email: "john@example.com", Password: "p1"})

	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	userRepo.AssertExpectations(t)
}

func TestLogin_UnknownEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user not found"))

	user, pair, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "p1"})

	assert.Nil(t, user)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	assertAppMessage(t, err, "Invalid email or password")
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Email:        "john@example.com",
		PasswordHash: hashForTest("p1"),
		IsVerified:   true,
	}
	userRepo.On("GetByEmail", ctx, "john@example.com").Return(existing, nil)

	user, pair, err := svc.Login(ctx, LoginInput{Email: "john@example.com", Password: "wrong"})

	assert.Nil(t, user)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	assertAppMessage(t, err, "Invalid email or password")
}

func TestLogin_UnverifiedUser(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Email:        "john@example.com",
		PasswordHash: hashForTest("p1"),
		IsVerified:   false,
	}
	userRepo.On("GetByEmail", ctx, "john@example.com").Return(existing, nil)

	user, pair, err := svc.Login(ctx, LoginInput{Email: "john@example.com", Password: "p1"})

	assert.Nil(t, user)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	assertAppMessage(t, err, "Please verify your email")
	userRepo.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_MissingCredentials(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	user, pair, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com"})

	assert.Nil(t, user)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	userRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

// --- ValidateSession Tests ---

func TestValidateSession_BothTokensMissing(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	identity, pair, err := svc.ValidateSession(context.Background(), "", "")

	assert.Nil(t, identity)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	assertAppMessage(t, err, "user not logged in")
}

func TestValidateSession_ValidAccessToken_RotatesPair(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	accessToken, err := jwtManager.GenerateAccessToken("user-123", domain.RoleUser)
	require.NoError(t, err)

	existing := &domain.User{ID: "user-123", Role: domain.RoleUser, IsVerified: true}
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("SetRefreshToken", ctx, "user-123", mock.AnythingOfType("string")).Return(nil)

	identity, pair, err := svc.ValidateSession(ctx, accessToken, "")

	require.NoError(t, err)
	require.NotNil(t, identity)
	require.NotNil(t, pair)
	assert.Equal(t, "user-123", identity.UserID)
	assert.Equal(t, domain.RoleUser, identity.Role)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	userRepo.AssertExpectations(t)
}

func TestValidateSession_InvalidAccessToken_NoFallback(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	// Even with a perfectly good refresh token alongside, a garbage access
	// token ends the request.
	identity, pair, err := svc.ValidateSession(ctx, "not-a-jwt", refreshToken)

	assert.Nil(t, identity)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	userRepo.AssertNotCalled(t, "GetByRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateSession_AccessTokenForDeletedUser(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	accessToken, err := jwtManager.GenerateAccessToken("user-gone", domain.RoleUser)
	require.NoError(t, err)

	userRepo.On("GetByID", ctx, "user-gone").Return(nil, apperrors.NotFound("user not found"))

	identity, pair, err := svc.ValidateSession(ctx, accessToken, "")

	assert.Nil(t, identity)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assertAppMessage(t, err, "token expired or user not found")
}

func TestValidateSession_RefreshOnly_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	oldHash := token.Hash(refreshToken)

	existing := &domain.User{ID: "user-123", Role: domain.RoleUser, IsVerified: true, RefreshTokenHash: oldHash}
	userRepo.On("GetByRefreshToken", ctx, "user-123", oldHash).Return(existing, nil)
	userRepo.On("RotateRefreshToken", ctx, "user-123", oldHash, mock.AnythingOfType("string")).Return(nil)

	identity, pair, err := svc.ValidateSession(ctx, "", refreshToken)

	require.NoError(t, err)
	require.NotNil(t, identity)
	require.NotNil(t, pair)
	assert.Equal(t, "user-123", identity.UserID)
	assert.NotEqual(t, refreshToken, pair.RefreshToken)
	userRepo.AssertExpectations(t)
}

func TestValidateSession_RefreshOnly_SupersededToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	userRepo.On("GetByRefreshToken", ctx, "user-123", token.Hash(refreshToken)).
		Return(nil, apperrors.NotFound("user not found"))

	identity, pair, err := svc.ValidateSession(ctx, "", refreshToken)

	assert.Nil(t, identity)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateSession_RefreshOnly_LostRotationRace(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	jwtManager := newTestJWTManager()
	refreshToken, err := jwtManager.GenerateRefreshToken("user-123")
	require.NoError(t, err)
	oldHash := token.Hash(refreshToken)

	existing := &domain.User{ID: "user-123", Role: domain.RoleUser, RefreshTokenHash: oldHash}
	userRepo.On("GetByRefreshToken", ctx, "user-123", oldHash).Return(existing, nil)
	userRepo.On("RotateRefreshToken", ctx, "user-123", oldHash, mock.AnythingOfType("string")).
		Return(apperrors.NotFound("refresh token superseded"))

	identity, pair, err := svc.ValidateSession(ctx, "", refreshToken)

	assert.Nil(t, identity)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateSession_RefreshOnly_Garbage(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	identity, pair, err := svc.ValidateSession(context.Background(), "", "not-a-jwt")

	assert.Nil(t, identity)
	assert.Nil(t, pair)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	userRepo.AssertNotCalled(t, "GetByRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

// --- ForgotPassword Tests ---

func TestForgotPassword_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	sender := newMockNotifier()
	svc := newTestService(userRepo, events, sender)
	ctx := context.Background()

	existing := &domain.User{ID: "user-123", Email: "john@example.com"}
	userRepo.On("GetByEmail", ctx, "john@example.com").Return(existing, nil)
	userRepo.On("SetPasswordResetToken", ctx, "user-123", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
	events.On("PublishUserPasswordReset", ctx, "user-123", "john@example.com").Return(nil)

	err := svc.ForgotPassword(ctx, "john@example.com")

	require.NoError(t, err)

	select {
	case <-sender.delivery:
	case <-time.After(2 * time.Second):
		t.Fatal("reset mail was not sent")
	}
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Verify your Password Reset", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "http://localhost:3000/api/v1/user/resetPassword/")

	userRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user not found"))

	err := svc.ForgotPassword(ctx, "ghost@example.com")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assertAppMessage(t, err, "user not found")
}

func TestForgotPassword_MissingEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	err := svc.ForgotPassword(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	userRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestForgotPassword_MailFailureDoesNotFail(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	sender := newMockNotifier()
	sender.err = assert.AnError
	svc := newTestService(userRepo, events, sender)
	ctx := context.Background()

	existing := &domain.User{ID: "user-123", Email: "john@example.com"}
	userRepo.On("GetByEmail", ctx, "john@example.com").Return(existing, nil)
	userRepo.On("SetPasswordResetToken", ctx, "user-123", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
	events.On("PublishUserPasswordReset", ctx, "user-123", "john@example.com").Return(nil)

	err := svc.ForgotPassword(ctx, "john@example.com")

	require.NoError(t, err)
}

// --- ResetPassword Tests ---

func TestResetPassword_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	raw := "a-reset-token"
	tokenHash := token.Hash(raw)
	existing := &domain.User{
		ID:    "user-123",
		Email: "john@example.com",
		PasswordResetToken: &domain.OneTimeToken{
			Hash:      tokenHash,
			IssuedAt:  time.Now().UTC(),
			ExpiresAt: timePtr(time.Now().UTC().Add(10 * time.Minute)),
		},
	}

	userRepo.On("GetByPasswordResetToken", ctx, tokenHash).Return(existing, nil)
	userRepo.On("ConsumePasswordResetToken", ctx, tokenHash, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return("user-123", nil)

	err := svc.ResetPassword(ctx, raw, "newpass", "newpass")

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	raw := "a-reset-token"
	tokenHash := token.Hash(raw)
	existing := &domain.User{
		ID: "user-123",
		PasswordResetToken: &domain.OneTimeToken{
			Hash:      tokenHash,
			IssuedAt:  time.Now().UTC().Add(-time.Hour),
			ExpiresAt: timePtr(time.Now().UTC().Add(-50 * time.Minute)),
		},
	}
	userRepo.On("GetByPasswordResetToken", ctx, tokenHash).Return(existing, nil)

	err := svc.ResetPassword(ctx, raw, "newpass", "newpass")

	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assertAppMessage(t, err, "passwordResetToken expired")
	userRepo.AssertNotCalled(t, "ConsumePasswordResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_UnknownToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	raw := "wrong-token"
	userRepo.On("GetByPasswordResetToken", ctx, token.Hash(raw)).Return(nil, apperrors.NotFound("user not found"))

	err := svc.ResetPassword(ctx, raw, "newpass", "newpass")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assertAppMessage(t, err, "no user found")
}

func TestResetPassword_PasswordMismatch(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	err := svc.ResetPassword(context.Background(), "a-reset-token", "newpass", "other")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assertAppMessage(t, err, "all fields required")
	userRepo.AssertNotCalled(t, "GetByPasswordResetToken", mock.Anything, mock.Anything)
}

func TestResetPassword_EmptyToken(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())

	err := svc.ResetPassword(context.Background(), "", "newpass", "newpass")

	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestResetPassword_ConsumedBetweenReadAndUpdate(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	raw := "a-reset-token"
	tokenHash := token.Hash(raw)
	existing := &domain.User{
		ID: "user-123",
		PasswordResetToken: &domain.OneTimeToken{
			Hash:      tokenHash,
			IssuedAt:  time.Now().UTC(),
			ExpiresAt: timePtr(time.Now().UTC().Add(10 * time.Minute)),
		},
	}
	userRepo.On("GetByPasswordResetToken", ctx, tokenHash).Return(existing, nil)
	userRepo.On("ConsumePasswordResetToken", ctx, tokenHash, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return("", apperrors.NotFound("token consumed"))

	err := svc.ResetPassword(ctx, raw, "newpass", "newpass")

	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

// --- Logout Tests ---

func TestLogout_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	userRepo.On("ClearRefreshToken", ctx, "user-123").Return(nil)

	err := svc.Logout(ctx, "user-123")

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestLogout_UnknownUser(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	userRepo.On("ClearRefreshToken", ctx, "ghost").Return(apperrors.NotFound("user not found"))

	err := svc.Logout(ctx, "ghost")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Profile Tests ---

func TestProfile_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	existing := &domain.User{
		ID:         "user-123",
		Name:       "John",
		Email:      "john@example.com",
		Role:       domain.RoleUser,
		IsVerified: true,
	}
	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)

	profile, err := svc.Profile(ctx, "user-123")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "user-123", profile.ID)
	assert.Equal(t, "John", profile.Name)
	assert.Equal(t, "john@example.com", profile.Email)
	assert.True(t, profile.IsVerified)
}

func TestProfile_UnknownUser(t *testing.T) {
	userRepo := new(mockUserRepository)
	events := new(mockEventPublisher)
	svc := newTestService(userRepo, events, newMockNotifier())
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("user not found"))

	profile, err := svc.Profile(ctx, "ghost")

	assert.Nil(t, profile)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assertAppMessage(t, err, "User not found")
}
