package helper

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
)

// GenerateNonce draws a uniform random value from the full 64-bit nonce
// space.
func GenerateNonce() uint64 {
	max := new(big.Int).SetUint64(^uint64(0))
	max.Add(max, big.NewInt(1))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		return binary.BigEndian.Uint64(buf[:])
	}
	return n.Uint64()
}
