package domain

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKeyDue(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsKeyDue(created, created, DefaultRotationInterval))
	assert.False(t, IsKeyDue(created, created.Add(23*time.Hour+59*time.Minute), DefaultRotationInterval))
	assert.True(t, IsKeyDue(created, created.Add(24*time.Hour), DefaultRotationInterval))
	assert.True(t, IsKeyDue(created, created.Add(48*time.Hour), DefaultRotationInterval))
}

func TestNextRotation(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, created.Add(24*time.Hour), NextRotation(created, DefaultRotationInterval))
}

func TestKey_RoundTrip(t *testing.T) {
	var k Key
	for i := range k {
		k[i] = byte(i)
	}

	parsed, err := ParseKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
	assert.False(t, parsed.IsZero())
}

func TestParseKey_Invalid(t *testing.T) {
	_, err := ParseKey("not base64!")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseKey("AAAA")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKey_TextMarshalling(t *testing.T) {
	var k Key
	k[0] = 0xff

	text, err := k.MarshalText()
	require.NoError(t, err)

	var decoded Key
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, k, decoded)
}

func TestAssociatedAddresses_Prefixes(t *testing.T) {
	addrs := AssociatedAddresses{
		IPv4: netip.MustParsePrefix("10.64.0.2/32"),
		IPv6: netip.MustParsePrefix("fc00:bbbb::2/128"),
	}

	assert.Equal(t, []netip.Prefix{addrs.IPv4, addrs.IPv6}, addrs.Prefixes())
	assert.Empty(t, AssociatedAddresses{}.Prefixes())
}
