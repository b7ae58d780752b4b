package dmsetup

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

func TestTableLineFormat(t *testing.T) {
	id, err := uuid.Parse("00112233-4455-6677-8899-aabbccddeeff")
	require.NoError(t, err)

	e := Entry{
		UUID:              types.UUID(id),
		SizeBytes:         8 * 1024 * 1024 * 1024,
		SourcePath:        "/dev/sda2",
		VolumeOffsetBytes: 0,
		Name:              "",
	}

	line := TableLine(e)
	assert.Equal(t, "0 16777216 crypt aes-xts-plain64 :48:logon:fvde:00112233-4455-6677-8899-aabbccddeeff 0 /dev/sda2 0", line)

	assert.Equal(t, "fvde", MapperName(e.Name))
	assert.Equal(t, `echo "0 16777216 crypt aes-xts-plain64 :48:logon:fvde:00112233-4455-6677-8899-aabbccddeeff 0 /dev/sda2 0" | dmsetup create fv1`,
		ShellCommand(line, "fv", 1))
}

func TestKeyDescription(t *testing.T) {
	id, err := uuid.Parse("00112233-4455-6677-8899-aabbccddeeff")
	require.NoError(t, err)
	assert.Equal(t, "fvde:00112233-4455-6677-8899-aabbccddeeff", KeyDescription(types.UUID(id)))
}

func TestMapperNameFallsBackToFvde(t *testing.T) {
	assert.Equal(t, "fvde", MapperName(""))
	assert.Equal(t, "data", MapperName("data"))
}
