package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"moby-metaserver/internal/metrics"
	"moby-metaserver/pkg/logging/logging"
)

// innerStore lets failingStore embed Store while overriding its Store method.
type innerStore = Store

type failingStore struct{ innerStore }

func (failingStore) Store(context.Context, string, []byte) error {
	return &WriteError{Key: "get_1.json", Err: errors.New("disk full")}
}

func TestLoggingStore_CountsHitsAndMisses(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core))

	s := NewLoggingStore(NewMemoryStore())
	hits := testutil.ToFloat64(metrics.CacheHitsTotal)
	misses := testutil.ToFloat64(metrics.CacheMissesTotal)
	loadErrs := testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("load"))

	if ok, _ := s.Exists(ctx, "get_1.json"); ok {
		t.Fatal("expected miss")
	}
	if _, err := s.Load(ctx, "get_1.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Store(ctx, "get_1.json", []byte(`{}`)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if ok, _ := s.Exists(ctx, "get_1.json"); !ok {
		t.Fatal("expected hit")
	}

	if got := testutil.ToFloat64(metrics.CacheHitsTotal) - hits; got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CacheMissesTotal) - misses; got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("load")) - loadErrs; got != 0 {
		t.Fatalf("a plain miss is not a load error, got %v", got)
	}

	entries := logs.FilterMessage("cache_exists").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 cache_exists entries, got %d", len(entries))
	}
	if entries[1].ContextMap()["cache_result"] != "hit" {
		t.Fatalf("expected hit result, got %v", entries[1].ContextMap()["cache_result"])
	}
}

func TestLoggingStore_StoreFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.WithLogger(context.Background(), zap.New(core))

	s := NewLoggingStore(failingStore{innerStore: NewMemoryStore()})
	before := testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("store"))

	err := s.Store(ctx, "get_1.json", []byte(`{}`))
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.CacheErrorsTotal.WithLabelValues("store")) - before; got != 1 {
		t.Fatalf("expected 1 store error, got %v", got)
	}
	if logs.FilterMessage("cache_store").Len() != 1 {
		t.Fatal("expected cache_store error log")
	}
}

func TestLoggingStore_PurgeCountsRemoved(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	_ = inner.Store(ctx, "platforms.json", []byte(`[]`))
	_ = inner.Store(ctx, "cover_1_platform_2.png", []byte{1})

	before := testutil.ToFloat64(metrics.CachePurgedTotal)
	res := NewLoggingStore(inner).Purge(ctx)
	if res.Count() != 2 || res.Err != nil {
		t.Fatalf("expected 2 removed, got %d (err=%v)", res.Count(), res.Err)
	}
	if got := testutil.ToFloat64(metrics.CachePurgedTotal) - before; got != 2 {
		t.Fatalf("expected purged counter +2, got %v", got)
	}
}
