package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeDeliversCurrent(t *testing.T) {
	n := NewNotifier("1111")

	var got []string
	id := n.Subscribe(func(account string) { got = append(got, account) })

	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"1111"}, got)
	assert.Equal(t, 1, n.Len())
}

func TestNotifier_PublishChangesOnly(t *testing.T) {
	n := NewNotifier("")

	var got []string
	n.Subscribe(func(account string) { got = append(got, account) })

	n.Publish("1111")
	n.Publish("1111")
	require.NoError(t, n.SetAccountNumber("2222"))
	n.Publish("")

	assert.Equal(t, []string{"", "1111", "2222", ""}, got)
	assert.Empty(t, n.AccountNumber())
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier("")

	var first, second []string
	a := n.Subscribe(func(account string) { first = append(first, account) })
	n.Subscribe(func(account string) { second = append(second, account) })

	n.Unsubscribe(a)
	n.Unsubscribe("unknown")
	n.Publish("1111")

	assert.Equal(t, []string{""}, first)
	assert.Equal(t, []string{"", "1111"}, second)
	assert.Equal(t, 1, n.Len())
}

func TestNotifier_UniqueIDs(t *testing.T) {
	n := NewNotifier("")
	a := n.Subscribe(func(string) {})
	b := n.Subscribe(func(string) {})
	assert.NotEqual(t, a, b)
}
