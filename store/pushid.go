package store

import (
	"crypto/rand"
	"sync"
	"time"
)

// Push key alphabet, ordered so that generated ids sort lexicographically in
// generation order. Same scheme the realtime database uses for push() keys:
// 8 characters of millisecond timestamp followed by 12 random characters.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

var (
	pushMu       sync.Mutex
	lastPushTime int64
	lastRandPart [12]int
)

// NewPushID returns a 20-character key that is unique and chronologically
// sortable among keys minted by any process. Within the same millisecond the
// random tail is incremented instead of re-rolled, keeping same-clock ids
// strictly increasing.
func NewPushID(now time.Time) string {
	pushMu.Lock()
	defer pushMu.Unlock()

	millis := now.UnixMilli()
	if millis == lastPushTime {
		for i := 11; i >= 0; i-- {
			lastRandPart[i]++
			if lastRandPart[i] < 64 {
				break
			}
			lastRandPart[i] = 0
		}
	} else {
		var buf [12]byte
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand failing means the system is in serious trouble;
			// fall back to the clock so ids still differ across millis.
			for i := range buf {
				buf[i] = byte(millis >> uint(i))
			}
		}
		for i, b := range buf {
			lastRandPart[i] = int(b) % 64
		}
	}
	lastPushTime = millis

	var id [20]byte
	for i := 7; i >= 0; i-- {
		id[i] = pushAlphabet[millis%64]
		millis /= 64
	}
	for i, r := range lastRandPart {
		id[8+i] = pushAlphabet[r]
	}
	return string(id[:])
}
