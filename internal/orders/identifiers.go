package orders

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber returns a short, human-shareable order number such as JF-261016-7KQ2M.
func NewOrderNumber(now time.Time) string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("JF-%s-%d", now.Format("060102"), now.UnixNano()%100000)
	}
	var b strings.Builder
	for _, v := range buf {
		b.WriteByte(numberAlphabet[int(v)%len(numberAlphabet)])
	}
	return fmt.Sprintf("JF-%s-%s", now.Format("060102"), b.String())
}

// NewAccessToken returns the opaque token customers use to track an order.
func NewAccessToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
