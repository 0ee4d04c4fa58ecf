package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

// errNotFound marks a 404 from Qdrant, which means the collection does not exist yet.
var errNotFound = errors.New("qdrant: not found")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates collections on first upsert.
type Storage struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

var _ domain.VectorIndex = (*Storage)(nil)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	url := cfg.URL
	if url == "" {
		url = "http://localhost:6333"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		url:    strings.TrimRight(url, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *Storage) GetOrCreateCollection(_ context.Context, name string) (domain.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty collection name", domain.ErrInvalidConfig)
	}
	return &collection{storage: s, name: name}, nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type collection struct {
	storage *Storage
	name    string

	mu    sync.Mutex
	ready bool
}

func (c *collection) Name() string { return c.name }

func (c *collection) path(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.storage.url, c.name, suffix)
}

// ensure creates the collection when it is missing.
func (c *collection) ensure(ctx context.Context, dimension int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := c.storage.do(ctx, http.MethodGet, c.path(""), nil, &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dimension {
			return fmt.Errorf("%w: collection %s has %d, record has %d", domain.ErrDimensionMismatch, c.name, size, dimension)
		}
	case errors.Is(err, errNotFound):
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		if err := c.storage.do(ctx, http.MethodPut, c.path(""), body, nil); err != nil {
			return err
		}
		c.storage.logger.Info("created qdrant collection", zap.String("collection", c.name), zap.Int("dimension", dimension))
	default:
		return err
	}
	c.ready = true
	return nil
}

// pointID maps a record ID to the UUID form Qdrant accepts.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func (c *collection) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	for _, r := range records {
		if len(r.Embedding) != dim {
			return fmt.Errorf("%w: record %s has %d, batch has %d", domain.ErrDimensionMismatch, r.ID, len(r.Embedding), dim)
		}
	}
	if err := c.ensure(ctx, dim); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     pointID(r.ID),
			"vector": r.Embedding,
			"payload": map[string]any{
				"id":      r.ID,
				"source":  r.Chunk.Source,
				"ordinal": r.Chunk.Ordinal,
				"text":    r.Chunk.Text,
			},
		}
	}
	return c.storage.do(ctx, http.MethodPut, c.path("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	req := map[string]any{
		"vector":       embedding,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.storage.do(ctx, http.MethodPost, c.path("/points/search"), req, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return []domain.Hit{}, nil
		}
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := domain.Hit{Distance: 1 - r.Score}
		if v, ok := r.Payload["id"].(string); ok {
			hit.ID = v
		}
		if v, ok := r.Payload["source"].(string); ok {
			hit.Source = v
		}
		if v, ok := r.Payload["ordinal"].(float64); ok {
			hit.Ordinal = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (c *collection) Count(ctx context.Context) (int, error) {
	return c.count(ctx, nil)
}

func (c *collection) count(ctx context.Context, filter map[string]any) (int, error) {
	body := map[string]any{"exact": true}
	if filter != nil {
		body["filter"] = filter
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := c.storage.do(ctx, http.MethodPost, c.path("/points/count"), body, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return resp.Result.Count, nil
}

func (c *collection) PruneSource(ctx context.Context, source string, keep []string) (int, error) {
	filter := map[string]any{
		"must": []any{
			map[string]any{"key": "source", "match": map[string]any{"value": source}},
		},
	}
	if len(keep) > 0 {
		ids := make([]string, len(keep))
		for i, id := range keep {
			ids[i] = pointID(id)
		}
		filter["must_not"] = []any{map[string]any{"has_id": ids}}
	}
	n, err := c.count(ctx, filter)
	if err != nil || n == 0 {
		return 0, err
	}
	if err := c.storage.do(ctx, http.MethodPost, c.path("/points/delete?wait=true"), map[string]any{"filter": filter}, nil); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
