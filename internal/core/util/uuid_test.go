package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	const s = "a1b2c3d4-e5f6-4789-8abc-def012345678"
	u := TextToUUID(s)
	require.True(t, u.Valid)
	require.Equal(t, s, UUIDToStr(u))
}

func TestTextToUUIDInvalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "not-a-uuid", "a1b2c3d4"} {
		u := TextToUUID(s)
		require.False(t, u.Valid, "input %q", s)
	}
	require.Equal(t, "", UUIDToStr(TextToUUID("nope")))
}

func TestNewUUID(t *testing.T) {
	t.Parallel()

	a, b := NewUUID(), NewUUID()
	require.True(t, a.Valid)
	require.True(t, b.Valid)
	require.NotEqual(t, a.Bytes, b.Bytes)
}
