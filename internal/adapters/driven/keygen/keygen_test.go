package keygen

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerate(t *testing.T) {
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	key, err := New().Generate(created)
	require.NoError(t, err)

	assert.Equal(t, created, key.CreationDate)
	assert.False(t, key.Private.IsZero())
	assert.False(t, key.Public.IsZero())
	assert.Zero(t, key.Private[0]&7)
	assert.Equal(t, byte(64), key.Private[31]&192)

	public, err := PublicKey(key.Private)
	require.NoError(t, err)
	assert.Equal(t, key.Public, public)
}

func TestGenerate_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 32)

	a, err := NewWithReader(bytes.NewReader(seed)).Generate(time.Time{})
	require.NoError(t, err)
	b, err := NewWithReader(bytes.NewReader(seed)).Generate(time.Time{})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerate_Unique(t *testing.T) {
	g := New()
	a, err := g.Generate(time.Time{})
	require.NoError(t, err)
	b, err := g.Generate(time.Time{})
	require.NoError(t, err)

	assert.NotEqual(t, a.Private, b.Private)
}

func TestGenerate_EntropyFailure(t *testing.T) {
	_, err := NewWithReader(failingReader{}).Generate(time.Time{})
	assert.Error(t, err)
}
