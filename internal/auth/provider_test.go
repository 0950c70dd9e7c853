package auth

import (
	"context"
	"testing"
	"time"

	"lufeed/internal/cache"
	"lufeed/internal/database"
	"lufeed/internal/models"
	"lufeed/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func newTestProvider(t *testing.T, rdb *redis.Client, now func() time.Time) *Provider {
	t.Helper()
	cache.SetClient(nil)

	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewProvider(repository.NewUserRepository(db), Options{
		Secret:   testSecret,
		TokenTTL: time.Hour,
		Redis:    rdb,
		Now:      now,
	})
}

func validSignUp() SignUpInput {
	return SignUpInput{
		DisplayName:     "Ada",
		Email:           "Ada@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func TestSignUp(t *testing.T) {
	p := newTestProvider(t, nil, nil)
	ctx := context.Background()

	var events []SessionEvent
	p.Subscribe(func(ev SessionEvent) { events = append(events, ev) })

	res, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, models.DefaultUserPhoto, res.User.PhotoURL)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)

	require.Len(t, events, 1)
	assert.Equal(t, EventSignedIn, events[0].Type)
	assert.Equal(t, res.User.UID, events[0].Session.UID)

	session, err := p.CurrentSession(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ada", session.DisplayName)
}

func TestSignUp_Validation(t *testing.T) {
	p := newTestProvider(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*SignUpInput)
		message string
	}{
		{"missing field", func(in *SignUpInput) { in.DisplayName = " " }, "Please fill in all fields"},
		{"mismatch", func(in *SignUpInput) { in.ConfirmPassword = "other12" }, "Passwords do not match"},
		{"short password", func(in *SignUpInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, "Password must be at least 6 characters"},
		{"bad email", func(in *SignUpInput) { in.Email = "nope" }, "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSignUp()
			tt.mutate(&in)
			_, err := p.SignUp(ctx, in)
			require.Error(t, err)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	p := newTestProvider(t, nil, nil)
	ctx := context.Background()

	_, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	in := validSignUp()
	in.Email = "ADA@example.com "
	_, err = p.SignUp(ctx, in)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestSignIn(t *testing.T) {
	p := newTestProvider(t, nil, nil)
	ctx := context.Background()

	_, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	res, err := p.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = p.SignIn(ctx, "ada@example.com", "wrong-password")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = p.SignIn(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	assert.Equal(t, "Invalid email or password", err.Error())

	_, err = p.SignIn(ctx, "", "")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestCurrentSession_RejectsBadTokens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := newTestProvider(t, nil, clock)
	ctx := context.Background()

	res, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	_, err = p.CurrentSession(ctx, "")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = p.CurrentSession(ctx, "not-a-jwt")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	other := NewProvider(p.users, Options{Secret: "another-secret-value-of-some-length", Now: clock})
	_, err = other.CurrentSession(ctx, res.Token)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	now = now.Add(2 * time.Hour)
	_, err = p.CurrentSession(ctx, res.Token)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}

func TestSignOut_InMemoryRevocation(t *testing.T) {
	p := newTestProvider(t, nil, nil)
	ctx := context.Background()

	res, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	var signedOut []string
	p.Subscribe(func(ev SessionEvent) {
		if ev.Type == EventSignedOut {
			signedOut = append(signedOut, ev.UID)
			assert.Nil(t, ev.Session)
		}
	})

	require.NoError(t, p.SignOut(ctx, res.Token))
	assert.Equal(t, []string{res.User.UID}, signedOut)

	_, err = p.CurrentSession(ctx, res.Token)
	require.Error(t, err)
	assert.Equal(t, "Token has been revoked", err.Error())

	// A fresh sign-in is unaffected.
	again, err := p.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	_, err = p.CurrentSession(ctx, again.Token)
	assert.NoError(t, err)
}

func TestSignOut_RedisRevocation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := newTestProvider(t, rdb, nil)
	ctx := context.Background()

	res, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx, res.Token))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "blacklist:")
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	_, err = p.CurrentSession(ctx, res.Token)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}

func TestUpdateProfile(t *testing.T) {
	p := newTestProvider(t, nil, nil)
	ctx := context.Background()

	res, err := p.SignUp(ctx, validSignUp())
	require.NoError(t, err)

	var updated *models.Session
	unsubscribe := p.Subscribe(func(ev SessionEvent) {
		if ev.Type == EventProfileUpdated {
			updated = ev.Session
		}
	})

	user, err := p.UpdateProfile(ctx, res.User.UID, "Ada L.", "https://example.com/me.png")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", user.DisplayName)
	require.NotNil(t, updated)
	assert.Equal(t, "https://example.com/me.png", updated.PhotoURL)

	_, err = p.UpdateProfile(ctx, res.User.UID, "", "")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = p.UpdateProfile(ctx, res.User.UID, "", "ftp://example.com/x")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = p.UpdateProfile(ctx, "missing-uid", "Someone", "")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	unsubscribe()
	unsubscribe()
	updated = nil
	_, err = p.UpdateProfile(ctx, res.User.UID, "Ada", "")
	require.NoError(t, err)
	assert.Nil(t, updated)
}
