package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fenro-storefront/internal/kv"
)

func TestLoginDerivesNameFromEmail(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, kv.NewMemory())

	assert.False(t, s.IsAuthenticated())

	u, err := s.Login(ctx, "anna.svensson@example.se")
	require.NoError(t, err)
	assert.Equal(t, "anna.svensson", u.Name)
	assert.True(t, s.IsAuthenticated())

	_, err = s.Login(ctx, "ingen-adress")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRegisterAndLogout(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := New(ctx, mem)

	_, err := s.Register(ctx, "anna@example.se", "Anna")
	require.NoError(t, err)

	// The identity survives a rehydration.
	re := New(ctx, mem)
	require.NotNil(t, re.User())
	assert.Equal(t, "Anna", re.User().Name)

	require.NoError(t, re.Logout(ctx))
	assert.Nil(t, re.User())

	// And the logout is durable too.
	assert.False(t, New(ctx, mem).IsAuthenticated())
}

func TestUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, kv.NewMemory())

	_, err := s.Register(ctx, "anna@example.se", "Anna")
	require.NoError(t, err)

	u := s.User()
	u.Name = "ändrad"
	assert.Equal(t, "Anna", s.User().Name)
}

func TestNewsletterFlag(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := New(ctx, mem)

	assert.False(t, s.HasSeenNewsletter(ctx))

	// Dismissing without subscribing records only the flag.
	require.NoError(t, s.MarkNewsletterSeen(ctx, ""))
	assert.True(t, s.HasSeenNewsletter(ctx))
	_, err := mem.Get(ctx, NewsletterEmailKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	// Subscribing records the email as well.
	require.NoError(t, s.MarkNewsletterSeen(ctx, "anna@example.se"))
	raw, err := mem.Get(ctx, NewsletterEmailKey)
	require.NoError(t, err)
	assert.JSONEq(t, `"anna@example.se"`, string(raw))

	assert.ErrorIs(t, s.MarkNewsletterSeen(ctx, "fel"), ErrInvalidEmail)
}
