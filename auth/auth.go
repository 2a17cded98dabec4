// Package auth registers users, issues bearer-token sessions and
// guards routes by role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"musicportal/apperr"
	"musicportal/model"

	"github.com/cdfmlr/crud/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var logger = log.ZoneLogger("musicportal/auth")

const minPasswordLen = 8

type Service struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewService(db *gorm.DB, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 72 * time.Hour
	}
	return &Service{db: db, ttl: sessionTTL, now: time.Now}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        model.Role
}

// Register creates an ARTIST or LABEL account. Admins are made by
// an existing admin or from the config, never by self sign-up.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", apperr.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must have at least %d characters", apperr.ErrInvalidInput, minPasswordLen)
	}
	role := in.Role
	if role == "" {
		role = model.RoleArtist
	}
	if role != model.RoleArtist && role != model.RoleLabel {
		return nil, fmt.Errorf("%w: cannot register with role %q", apperr.ErrForbidden, role)
	}

	return s.createUser(ctx, email, in.Password, strings.TrimSpace(in.DisplayName), role)
}

func (s *Service) createUser(ctx context.Context, email, password, displayName string, role model.Role) (*model.User, error) {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		return nil, fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}

	user := &model.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	logger.WithField("user", user.ID).WithField("role", role).Info("user registered")
	return user, nil
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}

	session := &model.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, nil, err
	}
	return session, &user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", apperr.ErrUnauthorized)
	}

	var session model.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: unknown session", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.Logout(ctx, token)
		return nil, fmt.Errorf("%w: session expired", apperr.ErrUnauthorized)
	}

	return s.GetUser(ctx, session.UserID)
}

func (s *Service) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, email)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	err := s.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

// SetRole changes the role of a user.
func (s *Service) SetRole(ctx context.Context, userID uint, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, role)
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role

	logger.WithField("user", user.ID).WithField("role", role).Info("role changed")
	return user, nil
}

// EnsureAdmin creates the admin account if no user has that email,
// or promotes the existing one.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == model.RoleAdmin {
			return user, nil
		}
		return s.SetRole(ctx, user.ID, model.RoleAdmin)
	case errors.Is(err, apperr.ErrNotFound):
		if len(password) < minPasswordLen {
			return nil, fmt.Errorf("%w: admin password must have at least %d characters", apperr.ErrInvalidInput, minPasswordLen)
		}
		return s.createUser(ctx, normalizeEmail(email), password, "", model.RoleAdmin)
	default:
		return nil, err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
