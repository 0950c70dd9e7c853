// Package auth is the identity provider: accounts, sessions, and session-change notifications.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lufeed/internal/cache"
	"lufeed/internal/models"
	"lufeed/internal/observability"
	"lufeed/internal/repository"
	"lufeed/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Token claims.
const (
	Issuer   = "lufeed-api"
	Audience = "lufeed-client"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// EventType names a session change.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventProfileUpdated EventType = "profile_updated"
)

// SessionEvent is delivered to subscribers when a session changes.
// Session is nil for EventSignedOut.
type SessionEvent struct {
	Type    EventType
	UID     string
	Session *models.Session
}

// Options configure a Provider.
type Options struct {
	Secret   string
	TokenTTL time.Duration
	// Redis holds revoked token IDs. When nil, revocations are kept in process.
	Redis *redis.Client
	Now   func() time.Time
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SignUpInput holds the sign-up form.
type SignUpInput struct {
	DisplayName     string `json:"display_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Provider signs users up and in, issues and revokes session tokens, and
// notifies subscribers of session changes.
type Provider struct {
	users repository.UserRepository
	opts  Options

	revokedMu sync.Mutex
	revoked   map[string]time.Time

	subsMu  sync.Mutex
	subs    map[int]func(SessionEvent)
	nextSub int
}

// NewProvider creates a Provider backed by users.
func NewProvider(users repository.UserRepository, opts Options) *Provider {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		users:   users,
		opts:    opts,
		revoked: make(map[string]time.Time),
		subs:    make(map[int]func(SessionEvent)),
	}
}

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	if err := validation.ValidateSignUp(in.DisplayName, in.Email, in.Password, in.ConfirmPassword); err != nil {
		return nil, models.NewValidationError(capitalize(err.Error()))
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := p.users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, models.NewValidationError("Email is already in use")
	}
	if err != nil && models.ErrorCode(err) != models.CodeNotFound {
		return nil, p.storeFailure(ctx, "sign_up", "create account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		UID:          uuid.NewString(),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Email:        email,
		PasswordHash: string(hash),
		PhotoURL:     models.DefaultUserPhoto,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, p.storeFailure(ctx, "sign_up", "create account", err)
	}

	return p.signIn(user)
}

// SignIn checks credentials and returns a fresh session token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, models.NewValidationError("Please enter email and password")
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Invalid email or password")
		}
		return nil, p.storeFailure(ctx, "sign_in", "sign in", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}

	return p.signIn(user)
}

func (p *Provider) signIn(user *models.User) (*AuthResult, error) {
	token, err := p.generateToken(user.UID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	p.emit(SessionEvent{Type: EventSignedIn, UID: user.UID, Session: user.Session()})
	return &AuthResult{Token: token, User: user}, nil
}

// SignOut revokes token. Signing out an already invalid token is an error.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return err
	}

	jti, _ := claims["jti"].(string)
	sub, _ := claims["sub"].(string)
	expiry := p.opts.Now().Add(p.opts.TokenTTL)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiry = exp.Time
	}
	if jti != "" {
		p.revoke(ctx, jti, expiry)
	}

	p.emit(SessionEvent{Type: EventSignedOut, UID: sub})
	return nil
}

// CurrentSession resolves token to the signed-in user's session.
func (p *Provider) CurrentSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := p.parse(token)
	if err != nil {
		return nil, err
	}
	if jti, _ := claims["jti"].(string); jti != "" && p.isRevoked(ctx, jti) {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}

	user, err := p.users.GetByUID(ctx, sub)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Account no longer exists")
		}
		return nil, p.storeFailure(ctx, "current_session", "load your account", err)
	}
	return user.Session(), nil
}

// User returns the account behind uid.
func (p *Provider) User(ctx context.Context, uid string) (*models.User, error) {
	user, err := p.users.GetByUID(ctx, uid)
	if err != nil && models.ErrorCode(err) != models.CodeNotFound {
		return nil, p.storeFailure(ctx, "user", "load your account", err)
	}
	return user, err
}

// UpdateProfile changes the display name and/or photo of uid.
func (p *Provider) UpdateProfile(ctx context.Context, uid, displayName, photoURL string) (*models.User, error) {
	displayName = strings.TrimSpace(displayName)
	photoURL = strings.TrimSpace(photoURL)
	if displayName == "" && photoURL == "" {
		return nil, models.NewValidationError("Nothing to update")
	}
	if displayName != "" {
		if err := validation.ValidateDisplayName(displayName); err != nil {
			return nil, models.NewValidationError(capitalize(err.Error()))
		}
	}
	if err := validation.ValidatePhotoURL(photoURL); err != nil {
		return nil, models.NewValidationError(capitalize(err.Error()))
	}

	user, err := p.users.UpdateProfile(ctx, uid, displayName, photoURL)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, err
		}
		return nil, p.storeFailure(ctx, "update_profile", "update your profile", err)
	}

	p.emit(SessionEvent{Type: EventProfileUpdated, UID: uid, Session: user.Session()})
	return user, nil
}

// Subscribe registers fn for session changes and returns a function that
// unregisters it. fn runs synchronously on the goroutine that caused the change.
func (p *Provider) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	p.subsMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subsMu.Lock()
			delete(p.subs, id)
			p.subsMu.Unlock()
		})
	}
}

func (p *Provider) emit(ev SessionEvent) {
	p.subsMu.Lock()
	fns := make([]func(SessionEvent), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// generateToken creates a JWT token for the given user ID
func (p *Provider) generateToken(uid string) (string, error) {
	if p.opts.Secret == "" {
		return "", errors.New("JWT secret not configured")
	}

	now := p.opts.Now()
	claims := jwt.MapClaims{
		"sub": uid,
		"iss": Issuer,
		"aud": Audience,
		"exp": now.Add(p.opts.TokenTTL).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.opts.Secret))
}

func (p *Provider) parse(tokenString string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(p.opts.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(p.opts.Now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	return claims, nil
}

func (p *Provider) revoke(ctx context.Context, jti string, expiry time.Time) {
	ttl := expiry.Sub(p.opts.Now())
	if ttl <= 0 {
		return
	}

	if p.opts.Redis != nil {
		err := p.opts.Redis.Set(ctx, cache.RevokedTokenKey(jti), "1", ttl).Err()
		if err == nil {
			return
		}
		observability.Logger.WarnContext(ctx, "token revocation fell back to memory", slog.String("error", err.Error()))
	}

	p.revokedMu.Lock()
	defer p.revokedMu.Unlock()
	now := p.opts.Now()
	for id, exp := range p.revoked {
		if !exp.After(now) {
			delete(p.revoked, id)
		}
	}
	p.revoked[jti] = expiry
}

func (p *Provider) isRevoked(ctx context.Context, jti string) bool {
	if p.opts.Redis != nil {
		n, err := p.opts.Redis.Exists(ctx, cache.RevokedTokenKey(jti)).Result()
		if err == nil && n > 0 {
			return true
		}
	}

	p.revokedMu.Lock()
	defer p.revokedMu.Unlock()
	exp, ok := p.revoked[jti]
	return ok && exp.After(p.opts.Now())
}

func (p *Provider) storeFailure(ctx context.Context, op, action string, err error) error {
	observability.Logger.ErrorContext(ctx, "identity store operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return models.NewStoreError(action, err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
