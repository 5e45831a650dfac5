package oracle

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"flightsurety/pkg/domain"
)

// IndexSource draws an index in [0, n) for identity at the given nonce.
type IndexSource interface {
	Index(identity domain.Address, nonce uint64, n uint8) uint8
}

// EntropySource supplies the substrate randomness mixed into each draw.
type EntropySource interface {
	Entropy(nonce uint64) []byte
}

// KeccakIndexSource reduces keccak256(entropy || identity) modulo n.
type KeccakIndexSource struct {
	Entropy EntropySource
}

// NewKeccakIndexSource returns a source backed by crypto/rand.
func NewKeccakIndexSource() KeccakIndexSource {
	return KeccakIndexSource{Entropy: RandomEntropy{}}
}

func (s KeccakIndexSource) Index(identity domain.Address, nonce uint64, n uint8) uint8 {
	if n == 0 {
		return 0
	}
	sum := domain.Keccak256(s.Entropy.Entropy(nonce), identity.Bytes())
	v := new(big.Int).SetBytes(sum[:])
	return uint8(v.Mod(v, big.NewInt(int64(n))).Uint64())
}

// RandomEntropy reads 32 bytes from crypto/rand for every draw.
type RandomEntropy struct{}

func (RandomEntropy) Entropy(nonce uint64) []byte {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf[:32]); err != nil {
		panic("oracle: entropy source failed: " + err.Error())
	}
	binary.BigEndian.PutUint64(buf[32:], nonce)
	return buf
}

// FixedEntropy derives entropy from a fixed seed and the nonce, making draws
// reproducible.
type FixedEntropy []byte

func (f FixedEntropy) Entropy(nonce uint64) []byte {
	buf := make([]byte, len(f)+8)
	copy(buf, f)
	binary.BigEndian.PutUint64(buf[len(f):], nonce)
	return buf
}

// SequenceIndexSource replays a fixed list of values, wrapping around.
type SequenceIndexSource struct {
	Values []uint8
	pos    int
}

func NewSequenceIndexSource(values ...uint8) *SequenceIndexSource {
	return &SequenceIndexSource{Values: values}
}

func (s *SequenceIndexSource) Index(_ domain.Address, _ uint64, n uint8) uint8 {
	if len(s.Values) == 0 || n == 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v % n
}
