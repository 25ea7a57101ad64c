package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSProviderRoundTrip(t *testing.T) {
	p := NewHSProvider("secret_ecom", time.Hour)

	tok, err := p.Sign(Principal{ID: "u-1", IsAdmin: true})
	require.NoError(t, err)

	got, err := p.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.True(t, got.IsAdmin)
}

func TestHSProviderRejects(t *testing.T) {
	p := NewHSProvider("secret_ecom", time.Hour)
	tok, err := p.Sign(Principal{ID: "u-1"})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewHSProvider("other", time.Hour).Parse(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewHSProvider("secret_ecom", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := p.Parse("not-a-token")
		assert.Error(t, err)
	})
}

func TestBcrypt(t *testing.T) {
	b := NewBcrypt(4)
	h, err := b.Hash("hunter22")
	require.NoError(t, err)
	assert.True(t, b.Compare(h, "hunter22"))
	assert.False(t, b.Compare(h, "hunter23"))
}
