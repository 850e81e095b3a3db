// Package auth implements email/password accounts with signed session
// tokens and one-shot email verification, replacing the hosted identity
// provider the catalog clients previously depended on.
package auth

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/pkg/common"
)

const (
	tokenKindVerify  = "verify"
	tokenKindRevoked = "revoked"

	sessionTTL = 72 * time.Hour
	verifyTTL  = 24 * time.Hour
)

var (
	ErrBadCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken     = errors.New("auth: email already registered")
	ErrBadToken       = errors.New("auth: invalid or expired token")
)

// AuthSession is the contract the catalog surfaces consume: sign-in,
// sign-up, verification mail, sign-out.
type AuthSession interface {
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (string, error)
	SendVerificationEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) error
	SignOut(ctx context.Context, sessionToken string) error
}

// Service is the gorm-backed AuthSession implementation.
type Service struct {
	db        *gorm.DB
	mailer    Mailer
	jwtSecret []byte
}

var _ AuthSession = (*Service)(nil)

func NewService(db *gorm.DB, mailer Mailer, jwtSecret string) *Service {
	return &Service{db: db, mailer: mailer, jwtSecret: []byte(jwtSecret)}
}

// SignUp registers a new account and fires off the verification email. The
// mail send is best-effort: a dead SMTP relay must not roll back the
// account row.
func (s *Service) SignUp(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrBadCredentials
	}
	var existing domain.AuthUser
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return ErrEmailTaken
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(err, "auth: lookup account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "auth: hash password")
	}
	user := domain.AuthUser{
		ID:       common.NextID(),
		Email:    email,
		Password: string(hash),
		Status:   common.ENABLED,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return errors.Wrap(err, "auth: create account")
	}

	if err := s.sendVerification(ctx, &user); err != nil {
		zap.L().Warn("verification mail failed after signup",
			zap.String("email", email), zap.Error(err))
	}
	return nil
}

// SignIn checks the password and returns a signed session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	var user domain.AuthUser
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrBadCredentials
		}
		return "", errors.Wrap(err, "auth: lookup account")
	}
	if user.Status != common.ENABLED {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.Wrap(err, "auth: sign token")
	}

	if err := s.db.WithContext(ctx).Model(&domain.AuthUser{}).
		Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		zap.L().Debug("last_login update failed", zap.Error(err))
	}
	return token, nil
}

// SendVerificationEmail issues a fresh verification token for the account.
func (s *Service) SendVerificationEmail(ctx context.Context, email string) error {
	var user domain.AuthUser
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBadCredentials
		}
		return errors.Wrap(err, "auth: lookup account")
	}
	return s.sendVerification(ctx, &user)
}

// VerifyEmail consumes a verification token. Tokens are single-use.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	var row domain.AuthToken
	err := s.db.WithContext(ctx).
		Where("kind = ? AND token = ?", tokenKindVerify, token).
		First(&row).Error
	if err != nil {
		return ErrBadToken
	}
	if time.Now().After(row.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&row)
		return ErrBadToken
	}

	if err := s.db.WithContext(ctx).Model(&domain.AuthUser{}).
		Where("id = ?", row.UserID).Update("verified", true).Error; err != nil {
		return errors.Wrap(err, "auth: mark verified")
	}
	s.db.WithContext(ctx).Delete(&row)
	zap.L().Info("account verified", zap.Int64("user_id", row.UserID))
	return nil
}

// SignOut revokes the session token by recording its jti until expiry.
func (s *Service) SignOut(ctx context.Context, sessionToken string) error {
	claims, err := s.ParseToken(sessionToken)
	if err != nil {
		return ErrBadToken
	}
	row := domain.AuthToken{
		ID:        common.NextID(),
		Kind:      tokenKindRevoked,
		Token:     claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "auth: revoke token")
	}
	return nil
}

// ParseToken validates the signature and expiry of a session token and
// returns its claims. Revocation is checked separately via IsRevoked.
func (s *Service) ParseToken(sessionToken string) (*jwt.RegisteredClaims, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(sessionToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrBadToken
	}
	return claims, nil
}

// IsRevoked reports whether the token id was signed out.
func (s *Service) IsRevoked(ctx context.Context, jti string) bool {
	var count int64
	s.db.WithContext(ctx).Model(&domain.AuthToken{}).
		Where("kind = ? AND token = ?", tokenKindRevoked, jti).
		Count(&count)
	return count > 0
}

// PurgeExpiredTokens drops verification and revocation rows past expiry.
// Wired to the application scheduler.
func (s *Service) PurgeExpiredTokens(ctx context.Context) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&domain.AuthToken{})
	if res.Error != nil {
		zap.L().Error("auth token purge failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		zap.L().Info("purged expired auth tokens", zap.Int64("count", res.RowsAffected))
	}
}

func (s *Service) sendVerification(ctx context.Context, user *domain.AuthUser) error {
	row := domain.AuthToken{
		ID:        common.NextID(),
		UserID:    user.ID,
		Kind:      tokenKindVerify,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(verifyTTL),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "auth: store verification token")
	}
	return s.mailer.SendVerification(user.Email, row.Token)
}
