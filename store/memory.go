package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const (
	defaultMemoryKeyPrefix = "scriba:memory:"
	defaultMemoryTTL       = 24 * time.Hour
	maxMemoryResponseBytes = 1 << 20
	memorySummaryMaxRunes  = 2000
)

// UpstashMemoryConfig configures the Redis REST endpoint.
type UpstashMemoryConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// UpstashMemoryStore keeps the rolling per-conversation summary in Upstash
// Redis via REST, expiring after the TTL like any cold conversation.
type UpstashMemoryStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

var _ contractx.MemoryStore = (*UpstashMemoryStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type MemoryOption func(*UpstashMemoryStore)

func WithMemoryKeyPrefix(prefix string) MemoryOption {
	return func(s *UpstashMemoryStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *UpstashMemoryStore) {
		s.ttl = ttl
	}
}

func WithMemoryHTTPClient(client *http.Client) MemoryOption {
	return func(s *UpstashMemoryStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func NewUpstashMemoryStore(cfg UpstashMemoryConfig, opts ...MemoryOption) (*UpstashMemoryStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashMemoryStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultMemoryKeyPrefix,
		ttl:        defaultMemoryTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// ReadSummary returns the stored summary, or empty when the conversation has
// no memory yet. Memory absence is never an error.
func (s *UpstashMemoryStore) ReadSummary(ctx context.Context, conversationID string) (string, error) {
	key, err := s.redisKey(conversationID)
	if err != nil {
		return "", err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return "", err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", nil
	}

	var summary string
	if err := json.Unmarshal(result, &summary); err != nil {
		return "", fmt.Errorf("decode memory payload: %w", err)
	}
	return summary, nil
}

func (s *UpstashMemoryStore) WriteSummary(ctx context.Context, conversationID string, update string) error {
	update = strings.TrimSpace(update)
	if update == "" {
		return nil
	}
	if runes := []rune(update); len(runes) > memorySummaryMaxRunes {
		update = string(runes[:memorySummaryMaxRunes])
	}

	key, err := s.redisKey(conversationID)
	if err != nil {
		return err
	}

	cmd := []any{"SET", key, update}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashMemoryStore) redisKey(conversationID string) (string, error) {
	if strings.TrimSpace(conversationID) == "" {
		return "", fmt.Errorf("%w: conversation id is empty", contractx.ErrValidation)
	}
	return s.keyPrefix + conversationID, nil
}

func (s *UpstashMemoryStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxMemoryResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
