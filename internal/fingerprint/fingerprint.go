// Package fingerprint derives a stable device identifier from request material.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/valyala/bytebufferpool"
)

// Compute returns the hex encoded SHA-256 digest of the agent string and the source address.
// A zero byte separates the two components so that distinct pairs never share an input.
func Compute(sourceAddress string, agent string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(agent)
	buf.WriteByte(0)
	buf.WriteString(sourceAddress)

	sum := sha256.Sum256(buf.B)
	return hex.EncodeToString(sum[:])
}
