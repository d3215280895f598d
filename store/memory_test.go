package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	contractx "github.com/scribadev/scriba/agent/contract"
)

func TestUpstashMemoryStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashMemoryStore{keyPrefix: defaultMemoryKeyPrefix}
	got, err := store.redisKey("conv-1")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "scriba:memory:conv-1" {
		t.Fatalf("redisKey() = %q, want %q", got, "scriba:memory:conv-1")
	}
}

func TestUpstashMemoryStoreRedisKeyEmptyConversation(t *testing.T) {
	t.Parallel()

	store := &UpstashMemoryStore{keyPrefix: defaultMemoryKeyPrefix}
	_, err := store.redisKey("   ")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("redisKey() error = %v, want ErrValidation", err)
	}
}

func TestUpstashMemoryStoreWriteSetsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashMemoryStore(
		UpstashMemoryConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithMemoryHTTPClient(server.Client()),
		WithMemoryTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewUpstashMemoryStore() error = %v", err)
	}

	if err := store.WriteSummary(context.Background(), "conv-1", "prefers formal tone"); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != "scriba:memory:conv-1" {
		t.Fatalf("command[1] = %v, want scriba:memory:conv-1", gotCommand[1])
	}
	if gotCommand[3] != "EX" {
		t.Fatalf("command[3] = %v, want EX", gotCommand[3])
	}
}

func TestUpstashMemoryStoreWriteSkipsEmptyUpdate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request for empty update")
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashMemoryStore(
		UpstashMemoryConfig{URL: server.URL, Token: "token"},
		WithMemoryHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashMemoryStore() error = %v", err)
	}

	if err := store.WriteSummary(context.Background(), "conv-1", "   "); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
}

func TestUpstashMemoryStoreWriteTruncatesLongSummary(t *testing.T) {
	t.Parallel()

	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashMemoryStore(
		UpstashMemoryConfig{URL: server.URL, Token: "token"},
		WithMemoryHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashMemoryStore() error = %v", err)
	}

	long := strings.Repeat("a", memorySummaryMaxRunes+50)
	if err := store.WriteSummary(context.Background(), "conv-1", long); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	stored, ok := gotCommand[2].(string)
	if !ok {
		t.Fatalf("command[2] = %T, want string", gotCommand[2])
	}
	if len(stored) != memorySummaryMaxRunes {
		t.Fatalf("stored summary length = %d, want %d", len(stored), memorySummaryMaxRunes)
	}
}

func TestUpstashMemoryStoreReadMissingKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashMemoryStore(
		UpstashMemoryConfig{URL: server.URL, Token: "token"},
		WithMemoryHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashMemoryStore() error = %v", err)
	}

	summary, err := store.ReadSummary(context.Background(), "conv-404")
	if err != nil {
		t.Fatalf("ReadSummary() error = %v", err)
	}
	if summary != "" {
		t.Fatalf("ReadSummary() = %q, want empty", summary)
	}
}

func TestUpstashMemoryStoreReadRoundTrip(t *testing.T) {
	t.Parallel()

	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"user is drafting an invoice"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashMemoryStore(
		UpstashMemoryConfig{URL: server.URL, Token: "token"},
		WithMemoryHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashMemoryStore() error = %v", err)
	}

	summary, err := store.ReadSummary(context.Background(), "conv-2")
	if err != nil {
		t.Fatalf("ReadSummary() error = %v", err)
	}
	if summary != "user is drafting an invoice" {
		t.Fatalf("ReadSummary() = %q", summary)
	}

	if len(gotCommand) != 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "GET" {
		t.Fatalf("command[0] = %v, want GET", gotCommand[0])
	}
	if gotCommand[1] != "scriba:memory:conv-2" {
		t.Fatalf("command[1] = %v, want scriba:memory:conv-2", gotCommand[1])
	}
}

func TestUpstashMemoryStoreRedisErrorSurfaces(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashMemoryStore(
		UpstashMemoryConfig{URL: server.URL, Token: "token"},
		WithMemoryHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashMemoryStore() error = %v", err)
	}

	if _, err := store.ReadSummary(context.Background(), "conv-3"); err == nil {
		t.Fatal("ReadSummary() expected error")
	}
}
