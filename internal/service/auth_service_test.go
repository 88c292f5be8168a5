package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/models"
	"doctrack/api/internal/security"
)

type authFixture struct {
	svc      *AuthService
	users    *memUserStore
	sessions *memSessionStore
	roles    *memRoleStore
	perms    *memPermissionStore
	attempts *memAttemptStore
	dir      *memDirectory
	limiter  *LoginRateLimiter
	notifier *memNotifier
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newMemUserStore()
	perms := newMemPermissionStore()
	roles := newMemRoleStore(users, perms)
	perms.roles = roles
	sessions := newMemSessionStore()
	attempts := newMemAttemptStore()
	dir := newMemDirectory()
	notifier := &memNotifier{}

	cfg := testAuthConfig()
	sessionSvc := NewSessionService(sessions, notifier, cfg, zerolog.Nop())
	limiter := NewLoginRateLimiter(attempts, testRateLimitConfig(), zerolog.Nop())
	svc := NewAuthService(users, sessionSvc, limiter, roles, dir, cfg, zerolog.Nop())

	return &authFixture{
		svc:      svc,
		users:    users,
		sessions: sessions,
		roles:    roles,
		perms:    perms,
		attempts: attempts,
		dir:      dir,
		limiter:  limiter,
		notifier: notifier,
	}
}

func (f *authFixture) addUser(t *testing.T, email string, password string, active bool) models.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	require.NoError(t, err)

	role := models.Role{ID: "role-clerk", Name: "Clerk", IsActive: true}
	user := models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		RoleID:       &role.ID,
		Role:         &role,
		IsActive:     active,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	var validation *autherr.ValidationError
	_, err := f.svc.Login(context.Background(), LoginInput{Email: "", Password: "x"})
	assert.ErrorAs(t, err, &validation)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: ""})
	assert.ErrorAs(t, err, &validation)
}

func TestLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.addUser(t, "known@x.com", "correct-horse", true)

	_, errUnknown := f.svc.Login(context.Background(), LoginInput{Email: "ghost@x.com", Password: "whatever"})
	_, errWrongPw := f.svc.Login(context.Background(), LoginInput{Email: "known@x.com", Password: "wrong"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	// No enumeration: identical error either way.
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	assert.ErrorIs(t, errUnknown, autherr.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, autherr.ErrInvalidCredentials)
	// Both outcomes are recorded.
	assert.Equal(t, 2, f.attempts.count())
}

func TestLogin_DisabledAccount(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.addUser(t, "off@x.com", "correct-horse", false)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "off@x.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, autherr.ErrAccountDisabled)
	assert.Equal(t, 1, f.attempts.count())
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	user := f.addUser(t, "a@x.com", "correct-horse", true)

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:     "A@X.com", // case-insensitive lookup
		Password:  "correct-horse",
		IPAddress: "10.1.1.1",
		UserAgent: "tests",
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, result.User.ID)
	assert.Nil(t, result.User.PasswordHash, "password hash must be stripped")
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.NotEmpty(t, result.SessionID)
	assert.Len(t, f.sessions.activeSessionsFor(user.ID), 1)
	assert.Equal(t, 1, f.attempts.count())
}

func TestLogin_RateLimitScenario(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.addUser(t, "a@x.com", "correct-horse", true)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.limiter.now = func() time.Time { return base }

	// 5 failures inside the window.
	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "wrong"})
		assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)
	}

	// 6th attempt is gated even with correct credentials. Ten minutes into
	// the window only five remain on the clock.
	f.limiter.now = func() time.Time { return base.Add(10 * time.Minute) }
	var limited *autherr.RateLimitedError
	_, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "correct-horse"})
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 15*time.Minute, limited.Window)
	assert.Equal(t, 5*time.Minute, limited.RetryAfter)

	// After a simulated 16-minute wait the correct login succeeds.
	f.limiter.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "correct-horse"})
	assert.NoError(t, err)
}

func TestLogin_BlockedBeforeCredentialCheck(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)

	// Block an email that has no account; the gate answers before lookup,
	// so the caller cannot distinguish it from a real one.
	for i := 0; i < 5; i++ {
		f.limiter.RecordAttempt(context.Background(), "ghost@x.com", "", "", false)
	}

	var limited *autherr.RateLimitedError
	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@x.com", Password: "x"})
	assert.ErrorAs(t, err, &limited)
}

func TestRefresh_RotatesAndInvalidatesOldJTI(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	f.addUser(t, "a@x.com", "correct-horse", true)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	oldClaims, err := security.ParseAccessToken(login.AccessToken, testAuthConfig().AccessSecret)
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, login.SessionID, refreshed.SessionID)

	// Pre-rotation jti is dead.
	sessionSvc := f.svc.sessions
	_, err = sessionSvc.Validate(ctx, oldClaims.TokenID())
	assert.ErrorIs(t, err, autherr.ErrSessionNotFound)

	// Replaying the old refresh token fails too.
	_, err = f.svc.Refresh(ctx, login.RefreshToken, "", "")
	assert.ErrorIs(t, err, autherr.ErrInvalidRefreshToken)
}

func TestRefresh_GarbageToken(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	_, err := f.svc.Refresh(context.Background(), "not-a-jwt", "", "")
	assert.ErrorIs(t, err, autherr.ErrInvalidRefreshToken)
}

func TestRegister_Validations(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	role := models.Role{ID: "role-1", Name: "Clerk", IsActive: true}
	require.NoError(t, f.roles.Create(ctx, role))
	f.addUser(t, "taken@x.com", "password123", true)

	var validation *autherr.ValidationError

	_, err := f.svc.Register(ctx, RegisterInput{Email: "bad-email", Password: "password123", RoleID: "role-1"})
	assert.ErrorAs(t, err, &validation)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "short", RoleID: "role-1"})
	assert.ErrorAs(t, err, &validation)

	// Case-insensitive email collision.
	_, err = f.svc.Register(ctx, RegisterInput{Email: "TAKEN@x.com", Password: "password123", RoleID: "role-1"})
	assert.ErrorAs(t, err, &validation)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "password123", RoleID: "missing"})
	assert.ErrorAs(t, err, &validation)

	inactiveArea := "area-off"
	f.dir.areas[inactiveArea] = false
	_, err = f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "password123", RoleID: "role-1", AreaID: &inactiveArea})
	assert.ErrorAs(t, err, &validation)
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.roles.Create(ctx, models.Role{ID: "role-1", Name: "Clerk", IsActive: true}))
	area := "area-1"
	f.dir.areas[area] = true

	user, err := f.svc.Register(ctx, RegisterInput{
		Email:    "New@X.com",
		Password: "password123",
		FullName: "New User",
		RoleID:   "role-1",
		AreaID:   &area,
	})
	require.NoError(t, err)

	assert.Equal(t, "new@x.com", user.Email, "email is normalized")
	assert.Nil(t, user.PasswordHash)
	assert.True(t, user.IsActive)

	stored, err := f.users.FindByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("password123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	user := f.addUser(t, "a@x.com", "old-password", true)
	ctx := context.Background()

	var validation *autherr.ValidationError
	err := f.svc.ChangePassword(ctx, user.ID, "old-password", "short")
	assert.ErrorAs(t, err, &validation)

	err = f.svc.ChangePassword(ctx, user.ID, "wrong-current", "new-password-1")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "old-password", "new-password-1"))

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("new-password-1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChangePassword_DoesNotRevokeSessions(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	user := f.addUser(t, "a@x.com", "old-password", true)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "old-password"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "old-password", "new-password-1"))

	// Session survival is deliberate; revocation is a separate explicit call.
	assert.Len(t, f.sessions.activeSessionsFor(user.ID), 1)
}
