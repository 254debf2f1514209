package utils

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// GenerateColor derives a stable HSL color from an identity. Saturation and
// lightness are bounded so every color stays readable on the room UI.
func GenerateColor(identity string) string {
	sum := sha1.Sum([]byte(identity))
	// last 16 bits of the digest; collisions are fine for a cosmetic value
	seed := uint64(binary.BigEndian.Uint16(sum[len(sum)-2:]))

	r := rand.New(rand.NewPCG(seed, seed))
	hue := r.IntN(361)
	saturation := 50 + r.IntN(26)
	lightness := 25 + r.IntN(36)

	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness)
}
