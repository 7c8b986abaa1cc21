// Package account is the local display-name stub the storefront uses in
// place of real authentication, plus the newsletter dismissal flag. Nothing
// here is a security boundary.
package account

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/domain/checkout"
	"github.com/xenking/fenro-storefront/internal/kv"
)

// Key-value store keys owned by this package.
const (
	UserKey            = "user"
	NewsletterSeenKey  = "hasSeenNewsletter"
	NewsletterEmailKey = "newsletterEmail"
)

// ErrInvalidEmail is returned when an address does not look like an email.
var ErrInvalidEmail = errors.New("invalid email address")

// User is the stored display identity.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Store owns the user stub and the newsletter flag. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	user  *User
	store kv.Store
}

// New hydrates the account store from the key-value store.
func New(ctx context.Context, store kv.Store) *Store {
	s := &Store{store: store}

	var u User
	err := kv.GetJSON(ctx, store, UserKey, &u)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		zctx.From(ctx).Warn("Discarding corrupt stored user", zap.Error(err))
	default:
		s.user = &u
	}
	return s
}

// Login stores a display identity derived from the email: the name is the
// address's local part. No credential ever gets checked.
func (s *Store) Login(ctx context.Context, email string) (*User, error) {
	if !checkout.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name, _, _ := strings.Cut(email, "@")
	return s.setUser(ctx, User{Email: email, Name: name})
}

// Register stores a display identity with an explicit name.
func (s *Store) Register(ctx context.Context, email, name string) (*User, error) {
	if !checkout.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	return s.setUser(ctx, User{Email: email, Name: name})
}

func (s *Store) setUser(ctx context.Context, u User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := kv.SetJSON(ctx, s.store, UserKey, u); err != nil {
		return nil, errors.Wrap(err, "persist user")
	}
	s.user = &u
	return &u, nil
}

// Logout forgets the stored identity.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, UserKey); err != nil {
		return errors.Wrap(err, "remove user")
	}
	s.user = nil
	return nil
}

// User returns the stored identity, or nil when logged out.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a display identity is stored.
func (s *Store) IsAuthenticated() bool {
	return s.User() != nil
}

// HasSeenNewsletter reports whether the newsletter prompt was dismissed.
func (s *Store) HasSeenNewsletter(ctx context.Context) bool {
	raw, err := s.store.Get(ctx, NewsletterSeenKey)
	return err == nil && string(raw) == "true"
}

// MarkNewsletterSeen records the dismissal; a non-empty email also records
// a subscription.
func (s *Store) MarkNewsletterSeen(ctx context.Context, email string) error {
	if err := s.store.Set(ctx, NewsletterSeenKey, []byte("true")); err != nil {
		return errors.Wrap(err, "persist newsletter flag")
	}
	if email == "" {
		return nil
	}
	if !checkout.ValidEmail(email) {
		return ErrInvalidEmail
	}
	return errors.Wrap(kv.SetJSON(ctx, s.store, NewsletterEmailKey, email), "persist newsletter email")
}
