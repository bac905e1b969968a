package xid

import (
	"strings"
	"testing"
	"time"
)

func TestBillNumberFormat(t *testing.T) {
	now := time.Date(2026, 8, 28, 14, 30, 15, 0, time.UTC)
	n := BillNumber(now)
	if !strings.HasPrefix(n, "BILL-20260828143015-") {
		t.Fatalf("bill number = %s", n)
	}
	if len(n) != len("BILL-20260828143015-")+4 {
		t.Fatalf("bill number length = %d: %s", len(n), n)
	}
}

func TestSuffixVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := Suffix()
		if len(s) != 4 {
			t.Fatalf("suffix length = %d: %s", len(s), s)
		}
		seen[s] = true
	}
	if len(seen) < 2 {
		t.Fatalf("suffix never varied")
	}
}

func TestDuplicateNumber(t *testing.T) {
	d := DuplicateNumber("BILL-20260828143015-ab12")
	if !strings.HasPrefix(d, "DUP-BILL-20260828143015-ab12-") {
		t.Fatalf("duplicate number = %s", d)
	}
}
