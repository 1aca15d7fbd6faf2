package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// IdempotencyKey derives the processor idempotency key for a charge. Calls
// for the same email inside one window share a key, so the processor returns
// the intent it already created instead of charging twice.
func IdempotencyKey(email string, now time.Time, window time.Duration) string {
	var epoch int64
	if window > 0 {
		epoch = now.UTC().Truncate(window).Unix()
	} else {
		epoch = now.UTC().UnixNano()
	}
	sum := sha256.Sum256([]byte(email + "|" + strconv.FormatInt(epoch, 10)))
	return "charge-" + hex.EncodeToString(sum[:])
}
