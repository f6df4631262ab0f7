package core

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/x-stp/saleprobe/internal/probe"
)

func itoa(i int) string { return strconv.Itoa(i) }

func TestResultSetConcurrentDistinctKeys(t *testing.T) {
	t.Parallel()

	const n = 500
	rs := NewResultSet(n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := rs.Set(itoa(i), probe.StatusOpeningNormally); err != nil {
				t.Errorf("set %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if rs.Len() != n {
		t.Fatalf("len = %d, want %d", rs.Len(), n)
	}
	if got := len(rs.Results()); got != n {
		t.Fatalf("results = %d, want %d", got, n)
	}
}

func TestResultSetRejectsSecondWrite(t *testing.T) {
	t.Parallel()

	rs := NewResultSet(1)
	if err := rs.Set("7", probe.StatusForSale); err != nil {
		t.Fatalf("first set: %v", err)
	}
	err := rs.Set("7", probe.StatusTimedOut)
	if !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("expected ErrDuplicateRow, got %v", err)
	}
	if got, _ := rs.Get("7"); got != probe.StatusForSale {
		t.Fatalf("first value overwritten: %q", got)
	}
}

func TestResultSetSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	rs := NewResultSet(1)
	_ = rs.Set("1", probe.StatusForSale)
	snap := rs.Snapshot()
	snap["1"] = probe.StatusInvalidURL
	snap["2"] = probe.StatusInvalidURL

	if got, _ := rs.Get("1"); got != probe.StatusForSale {
		t.Fatalf("snapshot mutation leaked into set: %q", got)
	}
	if rs.Len() != 1 {
		t.Fatalf("len = %d, want 1", rs.Len())
	}
}

func TestCheckDuplicates(t *testing.T) {
	t.Parallel()

	if err := CheckDuplicates([]Row{{ID: "1"}, {ID: "2"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := CheckDuplicates([]Row{{ID: "1"}, {ID: "2"}, {ID: "1"}})
	if !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("expected ErrDuplicateRow, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatalf("duplicate rows must not be retryable")
	}
}
