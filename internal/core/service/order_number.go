package service

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	base36Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	orderNumberSuffix = 9
)

// NewOrderNumber renders ORD-<epoch millis>-<9 random base36 chars>.
func NewOrderNumber(at time.Time) string {
	var b strings.Builder
	b.Grow(orderNumberSuffix)
	for i := 0; i < orderNumberSuffix; i++ {
		b.WriteByte(base36Alphabet[rand.IntN(len(base36Alphabet))])
	}
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), strings.ToUpper(b.String()))
}
