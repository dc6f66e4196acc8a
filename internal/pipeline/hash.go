// Package pipeline implements the three-stage synthesis pipeline that turns
// a room's prompt events into files: conflict analysis, design planning,
// and code building. Stages persist their artifacts through internal/repo,
// call the reasoning service through internal/reasoning, and are guarded by
// single-flight groups so concurrent triggers collapse into one execution.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// SpecHash computes the content hash of a design spec: sha256 over the
// canonical JSON serialization, hex-encoded. encoding/json is deterministic
// for SpecContent (fixed struct field order, sorted map keys), so equal
// content always hashes equal and the hash is usable as a dedup key.
func SpecHash(spec domain.SpecContent) string {
	b, err := json.Marshal(spec)
	if err != nil {
		// SpecContent contains only marshalable types; unreachable.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
