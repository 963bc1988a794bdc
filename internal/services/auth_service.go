package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"finance/internal/amqp"
	"finance/internal/auth"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/store"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

type AuthService struct {
	users   store.UserStore
	issuer  *auth.Issuer
	limiter *ratelimit.Limiter
	notify  notifier
	logger  *log.Logger
	now     func() time.Time
}

// NewAuthService limits login attempts per lowercased email with limiter.
func NewAuthService(users store.UserStore, issuer *auth.Issuer, limiter *ratelimit.Limiter, pub EventPublisher, logger *log.Logger) *AuthService {
	logger = logger.WithComponent(log.ComponentAuth)
	return &AuthService{
		users:   users,
		issuer:  issuer,
		limiter: limiter,
		notify:  notifier{publisher: pub, logger: logger},
		logger:  logger,
		now:     time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	u := core.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     core.NormalizeEmail(in.Email),
		CreatedAt: s.now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := core.ValidatePassword(in.Password); err != nil {
		return core.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldUserID, u.ID,
		log.FieldOperation, log.OpRegister)
	s.notify.publish(ctx, amqp.EventUserRegistered, u.ID)
	return u, nil
}

// Login checks the attempt limit first, then the credentials. Every attempt
// counts, successful or not.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = core.NormalizeEmail(email)

	if s.limiter != nil {
		d, err := s.limiter.Allow(ctx, email)
		if err != nil {
			s.logger.WarnContext(ctx, "Login rate limit unavailable, allowing attempt", log.FieldError, err)
		}
		if !d.Allowed {
			return Session{}, &RateLimitError{RetryAfter: d.RetryAfter}
		}
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrUserNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("check password: %w", err)
	}

	token, exp, err := s.issuer.Issue(u)
	if err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "User logged in",
		log.FieldUserID, u.ID,
		log.FieldOperation, log.OpLogin)
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *AuthService) User(ctx context.Context, id string) (core.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}
