package store

import (
	"encoding/binary"
	"os/user"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Local accounts without a directory-assigned UUID get one made of this
// prefix followed by the uid.
const generatedUUIDPrefix = "FFFFEEEE-DDDD-CCCC-BBBB-AAAA"

var lookupID = func(uid string) (string, error) {
	u, err := user.LookupId(uid)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// AccountName resolves an owner key to a user name. Keys are either a
// numeric uid or a user UUID; only generated UUIDs can be mapped back to a
// uid without a directory service.
func AccountName(owner string) (string, bool) {
	uid, ok := UID(owner)
	if !ok {
		return "", false
	}

	name, err := lookupID(strconv.FormatUint(uint64(uid), 10))
	if err != nil || name == "" {
		return "", false
	}

	return name, true
}

func UID(owner string) (uint32, bool) {
	if n, err := strconv.ParseUint(owner, 10, 32); err == nil {
		return uint32(n), true
	}

	id, err := uuid.Parse(owner)
	if err != nil {
		return 0, false
	}

	if !strings.HasPrefix(strings.ToUpper(id.String()), generatedUUIDPrefix) {
		return 0, false
	}

	return binary.BigEndian.Uint32(id[12:]), true
}
