package store

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32 (lowercase, no padding).
// Page ids are short because people type them.
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	suffix := strings.ToLower(enc.EncodeToString(b[:]))
	return prefix + "-" + suffix, nil
}

// newNoteID returns a server-assigned note id. Notes are created far more often than pages, so
// they get a full UUID.
func newNoteID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return "note-" + u.String(), nil
}
