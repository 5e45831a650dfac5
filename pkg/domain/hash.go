package domain

import "golang.org/x/crypto/sha3"

// Keccak256 hashes the concatenation of parts with legacy keccak-256, the hash
// the ledger uses for flight keys and oracle index seeds.
func Keccak256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
