package keyring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

func TestResolveKeyringNames(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"", unix.KEY_SPEC_SESSION_KEYRING},
		{"@s", unix.KEY_SPEC_SESSION_KEYRING},
		{"@u", unix.KEY_SPEC_USER_KEYRING},
		{"@us", unix.KEY_SPEC_USER_SESSION_KEYRING},
	}
	for _, c := range cases {
		got, err := ResolveKeyring(c.name)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestResolveKeyringNumericID(t *testing.T) {
	got, err := ResolveKeyring("42")
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestResolveKeyringUnknownName(t *testing.T) {
	_, err := ResolveKeyring("@bogus")
	require.Error(t, err)
	kind, ok := types.AsKind(err)
	require.True(t, ok)
	assert.Equal(t, types.KindUnsupportedValue, kind)
}

func TestPayloadLayout(t *testing.T) {
	var master [16]byte
	var tweak [32]byte
	for i := range master {
		master[i] = byte(i + 1)
	}
	for i := range tweak {
		tweak[i] = byte(i + 100)
	}

	p := Payload(master, tweak)
	require.Len(t, p, PayloadSize)
	assert.Equal(t, master[:], p[0:16])
	assert.Equal(t, tweak[:], p[16:48])
}

func TestDescriptionFormat(t *testing.T) {
	id, err := uuid.Parse("00112233-4455-6677-8899-aabbccddeeff")
	require.NoError(t, err)
	assert.Equal(t, "fvde:00112233-4455-6677-8899-aabbccddeeff", Description(types.UUID(id)))
}
