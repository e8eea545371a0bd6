package order

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// NewID builds "#<prefix><last 6 digits of unix millis><3-digit random>".
// Collisions are possible; the order store rejects duplicates per sheet.
func NewID(prefix string, now time.Time, random int) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return fmt.Sprintf("#%s%s%03d", prefix, millis, random%1000)
}

func GenerateID(prefix string) string {
	return NewID(prefix, time.Now(), rand.IntN(1000))
}
