package umf

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewMessageID 返回 32 位十六进制的随机 mid
func NewMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewShortMessageID 返回按时间有序的 ULID，适合需要排序的场景
func NewShortMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
