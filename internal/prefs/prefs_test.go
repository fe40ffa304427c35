package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDismissedDiscounts(t *testing.T) {
	s := newStore(t)

	codes, err := s.DismissedDiscounts("guest-1")
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, s.DismissDiscount("guest-1", "welcome10"))
	require.NoError(t, s.DismissDiscount("guest-1", "WELCOME10")) // dedup
	require.NoError(t, s.DismissDiscount("guest-1", "FREESHIP"))

	codes, err = s.DismissedDiscounts("guest-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"WELCOME10", "FREESHIP"}, codes)

	// other owners are unaffected
	codes, err = s.DismissedDiscounts("guest-2")
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, s.ResetDismissed("guest-1"))
	codes, err = s.DismissedDiscounts("guest-1")
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestRecentSearchesNewestFirstCapped(t *testing.T) {
	s := newStore(t)

	for _, q := range []string{"headphones", "keyboard", "Headphones"} {
		require.NoError(t, s.RecordSearch("guest-1", q))
	}
	got, err := s.RecentSearches("guest-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Headphones", "keyboard"}, got)

	for i := 0; i < 15; i++ {
		require.NoError(t, s.RecordSearch("guest-1", string(rune('a'+i))))
	}
	got, err = s.RecentSearches("guest-1")
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.Equal(t, "o", got[0])

	require.NoError(t, s.RecordSearch("guest-1", "   "))
	got2, err := s.RecentSearches("guest-1")
	require.NoError(t, err)
	assert.Equal(t, got, got2)
}
