package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/antonkondratyev/api-universal/internal/config"
)

func TestCacheKeyFrom(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/users?page=2", nil)
	head := httptest.NewRequest(http.MethodHead, "/users?page=2", nil)
	other := httptest.NewRequest(http.MethodGet, "/users?page=3", nil)

	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "path"}
	if cacheKeyFrom(cfg, get) != cacheKeyFrom(cfg, other) {
		t.Error("path strategy should ignore the query")
	}

	cfg.KeyStrategy = "path_query"
	if cacheKeyFrom(cfg, get) == cacheKeyFrom(cfg, other) {
		t.Error("path_query strategy should include the query")
	}
	if cacheKeyFrom(cfg, get) != cacheKeyFrom(cfg, head) {
		t.Error("path_query strategy should ignore the method")
	}

	cfg.KeyStrategy = "method_path_query"
	if cacheKeyFrom(cfg, get) == cacheKeyFrom(cfg, head) {
		t.Error("method_path_query strategy should include the method")
	}

	key := cacheKeyFrom(cfg, get)
	if len(key) != len("cache:")+40 || key[:6] != "cache:" {
		t.Errorf("key %q is not prefix plus sha1 hex", key)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	body := []byte(`{"message":"Success"}`)
	bs, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encodePayload() error = %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || !bytes.Equal(gotBody, body) {
		t.Errorf("decodePayload() = %d %v %q %v", status, gotHdr, gotBody, ok)
	}

	for _, bad := range [][]byte{nil, {0, 0, 0, 200}, {0, 0, 0, 200, 0, 0, 1, 0, '{'}} {
		if _, _, _, ok := decodePayload(bad); ok {
			t.Errorf("decodePayload(%v) accepted a truncated payload", bad)
		}
	}
}

func TestCaptureWriter_Overflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("def"))
	if !cw.overflow {
		t.Error("overflow not flagged")
	}
	if rec.Body.String() != "abcdef" {
		t.Errorf("client body = %q, want the full response", rec.Body.String())
	}
}

func TestReadCache_Passthrough(t *testing.T) {
	for _, cfg := range []config.CacheConfig{
		{Enabled: false, Prefix: "cache"},
		{Enabled: true, Prefix: "cache"},
	} {
		mw := ReadCache(cfg, nil, zerolog.Nop())
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/roles", nil), rec)
		err := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })(c)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if rec.Header().Get("X-Cache") != "" {
			t.Errorf("enabled=%v: X-Cache set without a Redis client", cfg.Enabled)
		}
	}
}

// cachedEcho serves /roles through ReadCache backed by miniredis. The GET
// handler reports how often it ran; POST answers with the given status.
func cachedEcho(t *testing.T, maxBody int) (*echo.Echo, *miniredis.Miniredis, *int, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, KeyStrategy: "path_query", Prefix: "cache", MaxBodyBytes: maxBody}
	e := echo.New()
	e.Use(ReadCache(cfg, rdb, zerolog.Nop()))

	gets := new(int)
	postStatus := new(int)
	*postStatus = http.StatusCreated
	e.GET("/roles", func(c echo.Context) error {
		*gets++
		c.Response().Header().Set(echo.HeaderXRequestID, "req-1")
		return c.JSON(http.StatusOK, map[string]int{"served": *gets})
	})
	e.POST("/roles", func(c echo.Context) error {
		return c.NoContent(*postStatus)
	})
	return e, mr, gets, postStatus
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestReadCache_HitAfterMiss(t *testing.T) {
	e, mr, gets, _ := cachedEcho(t, 1<<20)

	first := serve(e, http.MethodGet, "/roles")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", first.Header().Get("X-Cache"))
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("stored keys = %v, want 1", mr.Keys())
	}

	second := serve(e, http.MethodGet, "/roles")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", second.Header().Get("X-Cache"))
	}
	if *gets != 1 {
		t.Errorf("handler ran %d times, want 1", *gets)
	}
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Errorf("hit = %d %q, want %q", second.Code, second.Body.String(), first.Body.String())
	}
	if !strings.HasPrefix(second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		t.Errorf("Content-Type = %q", second.Header().Get(echo.HeaderContentType))
	}
	if second.Header().Get(echo.HeaderXRequestID) != "" {
		t.Error("request id of the cached exchange replayed")
	}

	if other := serve(e, http.MethodGet, "/roles?page=2"); other.Header().Get("X-Cache") != "MISS" {
		t.Error("different query served from cache")
	}
}

func TestReadCache_InvalidatedBySuccessfulMutation(t *testing.T) {
	e, mr, gets, postStatus := cachedEcho(t, 1<<20)
	mr.Set("other:keep", "x")

	serve(e, http.MethodGet, "/roles")
	*postStatus = http.StatusBadRequest
	serve(e, http.MethodPost, "/roles")
	if rec := serve(e, http.MethodGet, "/roles"); rec.Header().Get("X-Cache") != "HIT" {
		t.Error("failed mutation dropped the cache")
	}

	*postStatus = http.StatusCreated
	serve(e, http.MethodPost, "/roles")
	if rec := serve(e, http.MethodGet, "/roles"); rec.Header().Get("X-Cache") != "MISS" {
		t.Error("successful mutation left the cache in place")
	}
	if *gets != 2 {
		t.Errorf("handler ran %d times, want 2", *gets)
	}
	if !mr.Exists("other:keep") {
		t.Error("Invalidate removed a key outside the prefix")
	}
}

func TestReadCache_OverflowNotStored(t *testing.T) {
	e, mr, _, _ := cachedEcho(t, 4)
	if rec := serve(e, http.MethodGet, "/roles"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("oversized body cached under %v", keys)
	}
}

func TestInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	for _, k := range []string{"cache:a", "cache:b", "cachex:c"} {
		mr.Set(k, "v")
	}
	if err := Invalidate(context.Background(), rdb, "cache"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "cachex:c" {
		t.Errorf("remaining keys = %v, want [cachex:c]", keys)
	}
	if err := Invalidate(context.Background(), rdb, "cache"); err != nil {
		t.Errorf("Invalidate() on empty prefix error = %v", err)
	}
}
