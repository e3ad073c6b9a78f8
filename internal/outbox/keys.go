package outbox

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// IdempotencyKey derives a stable key for one intended action within one
// cycle. Two cycles an hour apart produce different keys; a retried cycle
// inside the dedupe window produces the same one.
func IdempotencyKey(account, kind, symbol, side string, amount float64, cycleStart time.Time) string {
	data := fmt.Sprintf("%s-%s-%s-%s-%.8f-%d", account, kind, symbol, side, amount, cycleStart.Unix())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:8])
}
