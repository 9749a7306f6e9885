// Package ledger implements the append-only, hash-chained audit ledger store.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"ehrledger/internal/domain"
)

// GenesisHash is the prev_hash for the first entry in a new ledger.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// EntryHash computes the chaining digest of an entry. The input covers every
// field except entry_hash itself, so flipping any stored byte changes the
// digest and breaks the chain for all subsequent entries.
//
// The input tuple is serialized as JSON: fixed field order, no maps, and
// string escaping keeps field boundaries unambiguous no matter what
// characters an id or payload value contains.
func EntryHash(e *domain.Entry) (string, error) {
	input, err := json.Marshal(struct {
		SequenceID int64          `json:"sequence_id"`
		Timestamp  string         `json:"ts"`
		ActorID    string         `json:"actor_id"`
		PatientID  string         `json:"patient_id"`
		Action     domain.Action  `json:"action"`
		Payload    domain.Payload `json:"payload"`
		PrevHash   string         `json:"prev_hash"`
	}{
		e.SequenceID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.ActorID,
		e.PatientID,
		e.Action,
		e.Payload,
		e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("marshal hash input: %w", err)
	}
	sum := sha256.Sum256(input)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
