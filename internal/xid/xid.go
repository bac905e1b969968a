// Package xid generates the human-facing identifiers printed on receipts.
// Entity primary keys are UUIDs; bill numbers stay short and timestamped so
// cashiers can read them out loud.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// BillNumber returns a receipt number like BILL-20260828143015-3f2a. The
// timestamp keeps numbers sortable; the suffix keeps two registers from
// colliding within the same second.
func BillNumber(now time.Time) string {
	return fmt.Sprintf("BILL-%s-%s", now.Format("20060102150405"), Suffix())
}

// DuplicateNumber derives the receipt number for a reprinted bill.
func DuplicateNumber(original string) string {
	return fmt.Sprintf("DUP-%s-%s", original, Suffix())
}

// Suffix returns 4 random hex characters.
func Suffix() string {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// the clock so we still return something usable.
		return fmt.Sprintf("%04x", time.Now().UnixNano()&0xffff)
	}
	return hex.EncodeToString(b)
}
