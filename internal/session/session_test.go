package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/KaramelBytes/pivotloom-cli/internal/filter"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/summary"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

func tiny(name string) *table.Table {
	return table.MustNew(name, table.TextColumn("a", []string{"x"}))
}

func TestKey(t *testing.T) {
	a := Key([]byte("a,b\n1,2\n"), "sheet=")
	if a != Key([]byte("a,b\n1,2\n"), "sheet=") {
		t.Fatal("same input, different keys")
	}
	if a == Key([]byte("a,b\n1,2\n"), "sheet=2") {
		t.Fatal("options must change the key")
	}
	if a == Key([]byte("a,b\n1,3\n"), "sheet=") {
		t.Fatal("content must change the key")
	}
}

func TestTableCacheEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewStore(2)
	s.PutTable(1, tiny("one"))
	s.PutTable(2, tiny("two"))
	if _, ok := s.Table(1); !ok {
		t.Fatal("table 1 missing")
	}
	s.PutTable(3, tiny("three"))
	if _, ok := s.Table(2); ok {
		t.Fatal("table 2 should have been evicted")
	}
	if _, ok := s.Table(1); !ok {
		t.Fatal("recently used table 1 evicted")
	}
	if s.Tables() != 2 {
		t.Fatalf("Tables = %d", s.Tables())
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewStore(0)
	sess := s.Open("sales.csv", 7, tiny("sales.csv"))
	if sess.ID == "" {
		t.Fatal("empty session id")
	}
	got, err := s.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get = %v, %v", got, err)
	}

	f := filter.Spec{"a": {"x"}}
	next := got.WithSelections(f, pivot.Spec{RowFields: []string{"a"}, ValueFields: []string{"v"}}, summary.Options{AddGrandTotalRow: true})
	f["a"][0] = "mutated"
	if next.Filter["a"][0] != "x" {
		t.Fatal("selections must be copied")
	}
	if got.Pivot.RowFields != nil {
		t.Fatal("original session changed")
	}
	if err := s.Save(next); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cur, _ := s.Get(sess.ID); !cur.Augment.AddGrandTotalRow {
		t.Fatal("saved selections not visible")
	}

	if !s.Close(sess.ID) {
		t.Fatal("Close returned false")
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(next); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Save after close = %v", err)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.PutTable(uint64(i%4), tiny("t"))
			s.Table(uint64(i % 4))
			sess := s.Open("t", uint64(i), tiny("t"))
			_, _ = s.Get(sess.ID)
		}(i)
	}
	wg.Wait()
	if s.Len() > 8 || s.Tables() > 4 {
		t.Fatalf("len=%d tables=%d", s.Len(), s.Tables())
	}
}
