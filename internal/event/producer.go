package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
	pkgkafka "github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/kafka"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/logger"
)

// Kafka topic constants for auth domain events.
const (
	TopicUserRegistered    = "auth.user.registered"
	TopicUserVerified      = "auth.user.verified"
	TopicUserPasswordReset = "auth.user.password_reset"
)

// Producer identifier carried in every event envelope.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserVerifiedData is the payload for a user.verified event.
type UserVerifiedData struct {
	UserID string `json:"user_id"`
}

// UserPasswordResetData is the payload for a user.password_reset event.
type UserPasswordResetData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes auth domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	if err := p.publish(ctx, TopicUserRegistered, user.ID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserVerified publishes a user.verified event.
func (p *Producer) PublishUserVerified(ctx context.Context, userID string) error {
	data := UserVerifiedData{UserID: userID}

	if err := p.publish(ctx, TopicUserVerified, userID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published user.verified event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishUserPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishUserPasswordReset(ctx context.Context, userID, email string) error {
	data := UserPasswordResetData{
		UserID: userID,
		Email:  email,
	}

	if err := p.publish(ctx, TopicUserPasswordReset, userID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published user.password_reset event",
		slog.String("user_id", userID),
	)

	return nil
}

// publish wraps the payload in the shared envelope, tagging it with the
// request's correlation ID when one is present.
func (p *Producer) publish(ctx context.Context, topic, subjectID string, payload any) error {
	event, err := pkgkafka.NewEvent(topic, subjectID, SourceAuthService, payload)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}
