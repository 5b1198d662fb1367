package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"linkbio/internal/config"
	"linkbio/internal/ids"
	"linkbio/internal/models"
	"linkbio/internal/repository"
	"linkbio/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user suspended")
)

type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	User         models.User
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("email and password required")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, fmt.Errorf("email already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	return s.openSession(ctx, user, "", "")
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	return s.openSession(ctx, user, input.IPAddress, input.UserAgent)
}

func (s *AuthService) Refresh(ctx context.Context, sessionID, refreshToken string) (AuthResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !security.RefreshTokenMatches(refreshToken, session.RefreshHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	newToken, newHash, err := security.GenerateRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}
	expiresAt := time.Now().Add(s.cfg.Security.JWTRefreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.ID, newHash, expiresAt); err != nil {
		return AuthResult{}, err
	}

	access, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID, session.ID, session.DeviceID, string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{AccessToken: access, RefreshToken: newToken, SessionID: session.ID, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *AuthService) openSession(ctx context.Context, user models.User, ip, userAgent string) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}

	session := models.Session{
		ID:          ids.New(),
		UserID:      user.ID,
		DeviceID:    ids.New(),
		RefreshHash: refreshHash,
		IPAddress:   ip,
		UserAgent:   userAgent,
		ExpiresAt:   time.Now().Add(s.cfg.Security.JWTRefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	if err := s.sessions.PruneOldest(ctx, user.ID, s.cfg.Security.MaxSessions); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session prune failed")
	}

	access, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID, session.ID, session.DeviceID, string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{AccessToken: access, RefreshToken: refreshToken, SessionID: session.ID, User: user}, nil
}
