package domain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DeriveGroupID builds the idempotency key for ledger entries produced from
// a source event. Events that yield several entries append a distinct suffix
// per entry so each posting dedups independently.
func DeriveGroupID(kind EventKind, sourceID string, suffix string) string {
	groupID := fmt.Sprintf("%s:%s", kind, sourceID)
	if suffix != "" {
		groupID = groupID + "#" + suffix
	}
	return groupID
}

// ShortID derives the stable display id for a group id.
func ShortID(groupID string) string {
	sum := blake2b.Sum256([]byte(groupID))
	return hex.EncodeToString(sum[:6])
}
