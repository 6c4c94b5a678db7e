package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/auth"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/notifier"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/repository"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/token"
	apperrors "github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 10

// EventPublisher publishes account lifecycle events. Failures are logged,
// never surfaced; the flows do not depend on the event bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserVerified(ctx context.Context, userID string) error
	PublishUserPasswordReset(ctx context.Context, userID, email string) error
}

// AuthService implements registration, verification, login, session
// validation with token rotation, password reset, and logout.
type AuthService struct {
	users    repository.UserRepository
	jwt      *auth.JWTManager
	notifier notifier.Notifier
	events   EventPublisher
	logger   *slog.Logger
	baseURL  string
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	jwtManager *auth.JWTManager,
	n notifier.Notifier,
	events EventPublisher,
	logger *slog.Logger,
	baseURL string,
) *AuthService {
	return &AuthService{
		users:    users,
		jwt:      jwtManager,
		notifier: n,
		events:   events,
		logger:   logger,
		baseURL:  baseURL,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a new unverified account and emails the verification
// link. Delivery of the verification mail is part of the flow: a notifier
// failure fails the registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("All fields are required")
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.Conflict("User already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rawToken, err := token.NewVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
		IsVerified:   false,
		VerificationToken: &domain.OneTimeToken{
			Hash:     token.Hash(rawToken),
			IssuedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost a race with a concurrent registration for the same email.
			return nil, apperrors.Conflict("User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	msg := notifier.Message{
		To:      user.Email,
		Subject: "Verify your Email",
		Body:    fmt.Sprintf("Please click on the following link - %s/api/v1/user/verify/%s", s.baseURL, rawToken),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send verification mail: %w", err)
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Verify consumes a verification token, marking the holder as verified.
// Tokens are single-use; a consumed or unknown token is rejected.
func (s *AuthService) Verify(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return apperrors.InvalidToken("Invalid token")
	}

	userID, err := s.users.ConsumeVerificationToken(ctx, token.Hash(rawToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidToken("token expired or invalid")
		}
		return fmt.Errorf("consume verification token: %w", err)
	}

	if err := s.events.PublishUserVerified(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.verified event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user verified", slog.String("user_id", userID))

	return nil
}

// Login authenticates a user with email and password, storing a fresh
// refresh token and returning the signed pair. Unknown email and wrong
// password produce the same message.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" || input.Password == "" {
		return nil, nil, apperrors.Unauthenticated("Invalid email or password")
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthenticated("Invalid email or password")
		}
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthenticated("Invalid email or password")
	}

	if !user.IsVerified {
		return nil, nil, apperrors.Unauthenticated("Please verify your email")
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, token.Hash(pair.RefreshToken)); err != nil {
		return nil, nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// ValidateSession runs the per-request session state machine over the two
// presented tokens and returns the established identity together with the
// rotated pair.
//
// A present access token is authoritative: if it fails verification the
// request is rejected without falling back to the refresh token. When only
// the refresh token is present it must both verify and match the stored
// digest; the swap to the new digest is conditional on the old one, so a
// concurrently rotated (or replayed) refresh token loses and is rejected.
func (s *AuthService) ValidateSession(ctx context.Context, accessToken, refreshToken string) (*domain.Identity, *domain.TokenPair, error) {
	if accessToken == "" {
		if refreshToken == "" {
			return nil, nil, apperrors.Unauthenticated("user not logged in")
		}
		return s.refreshSession(ctx, refreshToken)
	}

	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, nil, apperrors.InvalidToken("invalid access token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidToken("token expired or user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	// Every successful validation re-issues the pair, sliding the expiry
	// window and superseding the previous refresh token.
	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, token.Hash(pair.RefreshToken)); err != nil {
		return nil, nil, fmt.Errorf("store rotated refresh token: %w", err)
	}

	return &domain.Identity{UserID: user.ID, Role: user.Role}, pair, nil
}

// refreshSession establishes a session from the refresh token alone.
func (s *AuthService) refreshSession(ctx context.Context, refreshToken string) (*domain.Identity, *domain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, apperrors.InvalidToken("Invalid refresh token")
	}

	oldHash := token.Hash(refreshToken)
	user, err := s.users.GetByRefreshToken(ctx, claims.UserID, oldHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Superseded by a later rotation or cleared by logout.
			return nil, nil, apperrors.InvalidToken("Invalid refresh token")
		}
		return nil, nil, fmt.Errorf("get user by refresh token: %w", err)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.RotateRefreshToken(ctx, user.ID, oldHash, token.Hash(pair.RefreshToken)); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost the swap to a concurrent rotation.
			return nil, nil, apperrors.InvalidToken("Invalid refresh token")
		}
		return nil, nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &domain.Identity{UserID: user.ID, Role: user.Role}, pair, nil
}

// ForgotPassword issues a reset token and mails the reset link. The mail is
// fire-and-forget: delivery failure is logged, not surfaced.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user not found")
		}
		return fmt.Errorf("get user by email: %w", err)
	}

	rawToken, expiresAt, err := token.NewPasswordResetToken(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("issue password reset token: %w", err)
	}

	if err := s.users.SetPasswordResetToken(ctx, user.ID, token.Hash(rawToken), expiresAt); err != nil {
		return fmt.Errorf("store password reset token: %w", err)
	}

	msg := notifier.Message{
		To:      user.Email,
		Subject: "Verify your Password Reset",
		Body:    fmt.Sprintf("Please click on the following link - %s/api/v1/user/resetPassword/%s", s.baseURL, rawToken),
	}
	go func() {
		if err := s.notifier.Send(context.Background(), msg); err != nil {
			s.logger.Error("failed to send password reset mail",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	if err := s.events.PublishUserPasswordReset(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// ResetPassword consumes a reset token and sets the new password. The token
// and its expiry are cleared together, atomically with the password change.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	if rawToken == "" {
		return apperrors.InvalidToken("Invalid passwordResetToken")
	}
	if newPassword == "" || confirmPassword == "" || newPassword != confirmPassword {
		return apperrors.InvalidInput("all fields required")
	}

	tokenHash := token.Hash(rawToken)
	now := time.Now().UTC()

	user, err := s.users.GetByPasswordResetToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("no user found")
		}
		return fmt.Errorf("get user by reset token: %w", err)
	}

	if user.PasswordResetToken == nil || user.PasswordResetToken.Expired(now) {
		return apperrors.InvalidToken("passwordResetToken expired")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if _, err := s.users.ConsumePasswordResetToken(ctx, tokenHash, string(hashedPassword), now); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Consumed or expired between the read and the conditional update.
			return apperrors.InvalidToken("passwordResetToken expired")
		}
		return fmt.Errorf("consume password reset token: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// Logout terminates the user's session by clearing the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))

	return nil
}

// Profile returns the public projection of the user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	return domain.NewProfile(user), nil
}

// issueTokenPair signs a fresh access/refresh pair for the user.
func (s *AuthService) issueTokenPair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
