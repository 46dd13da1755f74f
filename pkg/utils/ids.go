package utils

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a lexicographically sortable identifier
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewToken returns an opaque random token for invites and links
func NewToken() string {
	return uuid.NewString()
}

// NewVoucherNumber formats a human readable voucher number that sorts by creation time
func NewVoucherNumber(orgID int64, at time.Time) string {
	id := NewID()
	return fmt.Sprintf("VCH-%d-%s-%s", orgID, at.UTC().Format("20060102"), id[len(id)-6:])
}
