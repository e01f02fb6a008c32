package catalog

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/erazemk/bookbin/internal/redisx"
)

type stubSource struct {
	rec   *Record
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context, identifier string) (*Record, bool) {
	s.calls++
	return s.rec, s.rec != nil
}

func TestCachedReadThrough(t *testing.T) {
	addr := os.Getenv("BOOKBIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKBIN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := redisx.Connect(ctx, addr)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rdb.Close()

	id := fmt.Sprintf("97800%08d", time.Now().UnixNano()%100000000)
	defer rdb.Del(ctx, fmt.Sprintf(redisx.KeyCatalogRecord, "stub", id))

	src := &stubSource{rec: &Record{Source: "stub", Title: "Cached"}}
	c := NewCached(src, rdb, time.Minute)

	for i := 0; i < 2; i++ {
		rec, ok := c.Fetch(ctx, id)
		if !ok || rec.Title != "Cached" {
			t.Fatalf("fetch %d: got %+v, %v", i, rec, ok)
		}
	}
	if src.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", src.calls)
	}
}
