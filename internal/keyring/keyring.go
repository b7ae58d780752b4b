// Package keyring inserts per-logical-volume key material into the Linux
// kernel keyring so dmsetup's :48:logon:... token can resolve it without
// the key ever touching a crypt-table file.
package keyring

import (
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/forensicsoft/go-fvde-core/internal/types"
)

// KeyType is the kernel key type used for FVDE key material.
const KeyType = "logon"

// PayloadSize is 48 bytes: a 16-byte master key followed by a 32-byte
// tweak key.
const PayloadSize = 48

// ResolveKeyring converts a keyring name (@s, @u, @us) or a decimal numeric
// ID string into the ringid AddKey expects.
func ResolveKeyring(name string) (int, error) {
	const fn = "keyring.ResolveKeyring"
	switch name {
	case "", "@s":
		return unix.KEY_SPEC_SESSION_KEYRING, nil
	case "@u":
		return unix.KEY_SPEC_USER_KEYRING, nil
	case "@us":
		return unix.KEY_SPEC_USER_SESSION_KEYRING, nil
	}
	id, err := strconv.Atoi(name)
	if err != nil {
		return 0, types.Newf(types.KindUnsupportedValue, fn, "unknown keyring %q", name)
	}
	return id, nil
}

// Payload concatenates a master key and tweak key into the 48-byte blob
// AddKey expects: master_key (16) || tweak_key (32).
func Payload(masterKey [16]byte, tweakKey [32]byte) [PayloadSize]byte {
	var p [PayloadSize]byte
	copy(p[0:16], masterKey[:])
	copy(p[16:48], tweakKey[:])
	return p
}

// Insert atomically adds a logon key named fvde:<uuid> carrying payload
// into the keyring selected by ringName, returning the kernel key ID.
func Insert(id types.UUID, payload [PayloadSize]byte, ringName string) (int, error) {
	const fn = "keyring.Insert"

	ringid, err := ResolveKeyring(ringName)
	if err != nil {
		return 0, err
	}

	description := Description(id)
	keyID, err := unix.AddKey(KeyType, description, payload[:], ringid)
	if err != nil {
		return 0, types.Wrap(types.KindIoWrite, fn, "add_key("+description+") failed", err)
	}
	return keyID, nil
}

// Description is the logon key's description, also referenced from the
// dm-crypt table line.
func Description(id types.UUID) string {
	return "fvde:" + uuid.UUID(id).String()
}
