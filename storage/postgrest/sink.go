// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	pgrest "github.com/supabase-community/postgrest-go"

	"github.com/poiesic/filevec/core"
	"github.com/poiesic/filevec/storage"
)

// DefaultTimeout bounds each request when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Sink writes rows through the PostgREST API.
type Sink struct {
	restURL   string
	apiKey    string
	transport http.RoundTripper
	timeout   time.Duration
	logger    *slog.Logger
}

var (
	_ storage.Sink    = (*Sink)(nil)
	_ storage.Purger  = (*Sink)(nil)
	_ storage.Counter = (*Sink)(nil)
)

// Option configures a Sink.
type Option func(*Sink)

// WithTransport replaces the HTTP transport used for every request.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Sink) {
		s.transport = rt
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

type row struct {
	Content   string        `json:"content"`
	Embedding []float32     `json:"embedding"`
	Metadata  core.Metadata `json:"metadata"`
}

// NewSink creates a sink for the project at baseURL (for example
// https://xyz.supabase.co) authenticated with apiKey.
func NewSink(baseURL, apiKey string, opts ...Option) (*Sink, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: storage URL is required", core.ErrConfiguration)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid storage URL: %w", core.ErrConfiguration, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: storage key is required", core.ErrConfiguration)
	}

	s := &Sink{
		restURL:   baseURL + "/rest/v1",
		apiKey:    apiKey,
		transport: http.DefaultTransport,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "postgrest-sink")
	return s, nil
}

// call is one request: a client bound to ctx that remembers the response
// headers, since the postgrest client neither takes a context nor exposes
// them.
type call struct {
	ctx    context.Context
	next   http.RoundTripper
	mu     sync.Mutex
	header http.Header
}

func (c *call) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := c.next.RoundTrip(req.WithContext(c.ctx))
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.header = resp.Header.Clone()
	c.mu.Unlock()
	return resp, nil
}

func (c *call) contentRange() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header.Get("Content-Range")
}

// from returns a query builder for table whose request runs under ctx.
func (s *Sink) from(ctx context.Context, table string) (*pgrest.QueryBuilder, *call, error) {
	if err := storage.ValidateIdentifier(table); err != nil {
		return nil, nil, err
	}
	client := pgrest.NewClient(s.restURL, "", map[string]string{
		"apikey":        s.apiKey,
		"Authorization": "Bearer " + s.apiKey,
	})
	if client.ClientError != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrConfiguration, client.ClientError)
	}
	c := &call{ctx: ctx, next: s.transport}
	client.Transport.Parent = c
	return client.From(table), c, nil
}

func (s *Sink) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func requestFailed(err error) error {
	return fmt.Errorf("%w: %w", storage.ErrRequestFailed, err)
}

// Insert posts one row to table.
func (s *Sink) Insert(ctx context.Context, table string, record core.Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, _, err := s.from(ctx, table)
	if err != nil {
		return storage.Wrap("insert", err)
	}

	metadata := record.Metadata
	if metadata == nil {
		metadata = core.Metadata{}
	}
	body, err := json.Marshal(row{Content: record.Content, Embedding: record.Embedding, Metadata: metadata})
	if err != nil {
		return storage.Wrap("insert", fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err))
	}
	if _, _, err := query.Insert(json.RawMessage(body), false, "", "minimal", "").Execute(); err != nil {
		return storage.Wrap("insert", requestFailed(err))
	}

	s.logger.Debug("row stored", "table", table, "length", len(record.Content))
	return nil
}

// DeleteAll removes every row whose id is not 0, which is every row the
// server generated.
func (s *Sink) DeleteAll(ctx context.Context, table string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, c, err := s.from(ctx, table)
	if err != nil {
		return 0, storage.Wrap("delete all", err)
	}
	if _, _, err := query.Delete("minimal", "exact").Neq("id", "0").Execute(); err != nil {
		return 0, storage.Wrap("delete all", requestFailed(err))
	}

	removed := parseContentRange(c.contentRange())
	if removed < 0 {
		return 0, storage.Wrap("delete all", fmt.Errorf("%w: missing Content-Range total", storage.ErrRequestFailed))
	}
	s.logger.Info("table purged", "table", table, "rows", removed)
	return removed, nil
}

// Count asks the server for the exact row count of table.
func (s *Sink) Count(ctx context.Context, table string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, c, err := s.from(ctx, table)
	if err != nil {
		return 0, storage.Wrap("count", err)
	}
	if _, _, err := query.Select("id", "exact", true).Execute(); err != nil {
		return 0, storage.Wrap("count", requestFailed(err))
	}

	n := parseContentRange(c.contentRange())
	if n < 0 {
		return 0, storage.Wrap("count", fmt.Errorf("%w: missing Content-Range total", storage.ErrRequestFailed))
	}
	return n, nil
}

// parseContentRange extracts the total from "0-24/3573" or "*/0".
// It returns -1 when the total is absent or unknown.
func parseContentRange(header string) int {
	_, total, ok := strings.Cut(header, "/")
	if !ok || total == "*" {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return -1
	}
	return n
}
