package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/helioscale/sdkdex/internal/metrics"
	"github.com/helioscale/sdkdex/internal/vectorcache"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func testRecord(key string) *vectorcache.Record {
	return &vectorcache.Record{
		CacheKey: key,
		Meta:     vectorcache.Meta{Provider: "remote", Model: "test-model", ItemCount: 1, Dimensions: 2},
		Items:    []vectorcache.ItemRef{{ID: "a#0", URI: "doc://x/1"}},
		Vectors:  [][]float32{{1, 0}},
	}
}

func TestLoad_Hit(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	rec := testRecord("expected")
	data, _ := json.Marshal(rec)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "p:vindex:remote:test-model")).
		Return(mock.Result(mock.RedisString(string(data))))

	s := NewStoreForTest(c, "p:")
	got, ok := s.Load(context.Background(), "remote", "test-model", "expected")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.CacheKey != "expected" || len(got.Items) != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestLoad_KeyMismatchIsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	data, _ := json.Marshal(testRecord("stale"))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "p:vindex:remote:test-model")).
		Return(mock.Result(mock.RedisString(string(data))))

	s := NewStoreForTest(c, "p:")
	if _, ok := s.Load(context.Background(), "remote", "test-model", "fresh"); ok {
		t.Fatal("stale cache key must be a miss")
	}
}

func TestLoad_CorruptRecordIsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "p:vindex:remote:test-model")).
		Return(mock.Result(mock.RedisString("{not json")))

	s := NewStoreForTest(c, "p:")
	if _, ok := s.Load(context.Background(), "remote", "test-model", "k"); ok {
		t.Fatal("corrupt record must be a miss")
	}
}

func TestLoad_NilIsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "p:vindex:remote:test-model")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, "p:")
	if _, ok := s.Load(context.Background(), "remote", "test-model", "k"); ok {
		t.Fatal("missing key must be a miss")
	}
}

func TestSave(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	rec := testRecord("k")
	data, _ := json.Marshal(rec)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "p:vindex:remote:test-model", string(data))).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, "p:")
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
}
