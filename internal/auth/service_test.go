package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/pkg/common"
)

// captureMailer records outgoing verification mails.
type captureMailer struct {
	emails []string
	tokens []string
}

func (m *captureMailer) SendVerification(email, token string) error {
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, token)
	return nil
}

func testService(t *testing.T) (*Service, *captureMailer, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().AutoMigrate(&domain.AuthUser{}, &domain.AuthToken{}))

	mailer := &captureMailer{}
	return NewService(db, mailer, "test-secret"), mailer, db
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, mailer, db := testService(t)
	ctx := context.Background()

	require.NoError(t, svc.SignUp(ctx, "user@example.com", "s3cret!pw"))

	// password is stored hashed, never in the clear
	var user domain.AuthUser
	require.NoError(t, db.Where("email = ?", "user@example.com").First(&user).Error)
	assert.NotEqual(t, "s3cret!pw", user.Password)
	assert.False(t, user.Verified)

	// signup fires the verification mail
	require.Len(t, mailer.emails, 1)
	assert.Equal(t, "user@example.com", mailer.emails[0])

	token, err := svc.SignIn(ctx, "user@example.com", "s3cret!pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestSignUpDuplicate(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))
	assert.ErrorIs(t, svc.SignUp(ctx, "user@example.com", "other"), ErrEmailTaken)
}

func TestSignInRejectsBadPassword(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))

	_, err := svc.SignIn(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "pw123456")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestSignInRejectsDisabledAccount(t *testing.T) {
	svc, _, db := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))
	require.NoError(t, db.Model(&domain.AuthUser{}).
		Where("email = ?", "user@example.com").
		Update("status", common.DISABLED).Error)

	_, err := svc.SignIn(ctx, "user@example.com", "pw123456")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	svc, mailer, db := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))
	require.Len(t, mailer.tokens, 1)

	require.NoError(t, svc.VerifyEmail(ctx, mailer.tokens[0]))

	var user domain.AuthUser
	require.NoError(t, db.Where("email = ?", "user@example.com").First(&user).Error)
	assert.True(t, user.Verified)

	// single use
	assert.ErrorIs(t, svc.VerifyEmail(ctx, mailer.tokens[0]), ErrBadToken)
	assert.ErrorIs(t, svc.VerifyEmail(ctx, "bogus"), ErrBadToken)
}

func TestResendVerification(t *testing.T) {
	svc, mailer, _ := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))

	require.NoError(t, svc.SendVerificationEmail(ctx, "user@example.com"))
	assert.Len(t, mailer.tokens, 2)

	assert.ErrorIs(t, svc.SendVerificationEmail(ctx, "nobody@example.com"), ErrBadCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))

	token, err := svc.SignIn(ctx, "user@example.com", "pw123456")
	require.NoError(t, err)
	claims, err := svc.ParseToken(token)
	require.NoError(t, err)

	assert.False(t, svc.IsRevoked(ctx, claims.ID))
	require.NoError(t, svc.SignOut(ctx, token))
	assert.True(t, svc.IsRevoked(ctx, claims.ID))
}

func TestParseTokenRejectsForgery(t *testing.T) {
	svc, _, _ := testService(t)
	other := NewService(nil, NopMailer{}, "different-secret")
	ctx := context.Background()
	require.NoError(t, svc.SignUp(ctx, "user@example.com", "pw123456"))

	token, err := svc.SignIn(ctx, "user@example.com", "pw123456")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestPurgeExpiredTokens(t *testing.T) {
	svc, _, db := testService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.AuthToken{
		ID: 1, Kind: "verify", Token: "old", ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&domain.AuthToken{
		ID: 2, Kind: "verify", Token: "fresh", ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	svc.PurgeExpiredTokens(ctx)

	var count int64
	db.Model(&domain.AuthToken{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
