// Package checksum derives the replica's drift-detection fingerprint.
//
// The server computes the same hash over the same five logical values; the
// two implementations must agree bit for bit, so the algorithm here is a
// wire contract: FNV-1a 64 over little-endian uint64 encodings of item
// count, total cents, paid cents, last sequence and the status ordinal,
// in that order.
package checksum

import (
	"encoding/binary"
	"fmt"

	"github.com/tablewire/posd/internal/order"
	"github.com/tablewire/posd/pkg/money"
)

const (
	offsetBasis uint64 = 14695981039346656037
	prime       uint64 = 1099511628211
)

// Compute returns the 16-hex-char state checksum for a snapshot.
func Compute(snap *order.Snapshot) string {
	if snap == nil {
		return ""
	}
	hash := offsetBasis
	hash = fold(hash, uint64(snap.ActiveItemCount()))
	hash = fold(hash, uint64(money.Cents(snap.Total)))
	hash = fold(hash, uint64(money.Cents(snap.PaidAmount)))
	hash = fold(hash, uint64(snap.LastSequence))
	hash = fold(hash, uint64(snap.Status.Ordinal()))
	return fmt.Sprintf("%016x", hash)
}

// Verify reports whether the stored checksum matches the freshly computed
// one. An empty stored value passes: snapshots from servers that predate
// checksums carry none.
func Verify(snap *order.Snapshot) bool {
	if snap == nil || snap.StateChecksum == "" {
		return true
	}
	return snap.StateChecksum == Compute(snap)
}

func fold(hash, value uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	for _, b := range buf {
		hash ^= uint64(b)
		hash *= prime
	}
	return hash
}
