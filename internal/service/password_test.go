package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	t.Parallel()

	h := newHasher(bcrypt.MinCost, time.Second)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)

	ok, err := h.Compare(ctx, hash, "secret1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Compare(ctx, hash, "secret2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, h.CompareDummy(ctx, "whatever"))
}

func TestHasher_Defaults(t *testing.T) {
	t.Parallel()

	h := newHasher(0, 0)
	require.Equal(t, bcrypt.DefaultCost, h.cost)
	require.Equal(t, defaultHashTimeout, h.timeout)
}

func TestHasher_Timeout(t *testing.T) {
	t.Parallel()

	h := newHasher(bcrypt.MinCost, time.Nanosecond)

	_, err := h.Hash(context.Background(), "secret1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHasher_CanceledContext(t *testing.T) {
	t.Parallel()

	h := newHasher(bcrypt.MinCost, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Compare(ctx, "$2a$04$invalid", "x")
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	err := invalid("password", "must be at least 6 characters")
	require.EqualError(t, err, "password must be at least 6 characters")
	require.ErrorIs(t, err, ErrValidation)
}
