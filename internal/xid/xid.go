package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns a prefixed, time-ordered identifier. Ids created later sort
// lexically after earlier ones within the same prefix.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%020d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%020d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
