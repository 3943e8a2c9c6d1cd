package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager(t *testing.T) {
	inv := newFakeInventory(storefront()...)
	m := NewSessionManager(inv, &fakeModel{}, newFakeTranscript(), nil)

	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotSame(t, a.Cart, b.Cart)
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}
