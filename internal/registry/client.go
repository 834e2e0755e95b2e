package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/harmonyui/harmonycn/internal/errors"
	"github.com/harmonyui/harmonycn/internal/telemetry"
)

// Document kinds, used as metric labels.
const (
	kindIndex = "index"
	kindItem  = "item"
	kindColor = "color"
)

// Client reads and validates registry documents from a Source.
type Client struct {
	source  Source
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu    sync.Mutex
	index []Item
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records fetches on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client reading from source.
func New(source Source, opts ...Option) *Client {
	c := &Client{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIndex returns the validated registry index. The index is fetched
// once per Client.
func (c *Client) FetchIndex(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		return c.index, nil
	}

	data, err := c.fetch(ctx, kindIndex, "index.json")
	if err != nil {
		return nil, err
	}

	index, err := DecodeIndex(data)
	c.metrics.RecordRegistryFetch(kindIndex, err)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("registry index fetched", "items", len(index))
	c.index = index
	return index, nil
}

// FetchItem returns the style-specific document of a single item.
func (c *Client) FetchItem(ctx context.Context, style, name string) (Item, error) {
	data, err := c.fetch(ctx, kindItem, StylePath(style, name))
	if err != nil {
		return Item{}, err
	}

	item, err := DecodeItem(data)
	c.metrics.RecordRegistryFetch(kindItem, err)
	if err != nil {
		return Item{}, err
	}
	if item.Name != name {
		return Item{}, errors.New(errors.CodeValidation).
			WithDetailf("requested %q from style %q but got %q", name, style, item.Name)
	}
	return item, nil
}

// FetchTree resolves index entries into their style-specific documents,
// in input order. Files the style document leaves without content keep the
// content from the index entry. One failure fails the whole tree.
func (c *Client) FetchTree(ctx context.Context, style string, items []Item) ([]Item, error) {
	tree := make([]Item, 0, len(items))
	for _, entry := range items {
		item, err := c.FetchItem(ctx, style, entry.Name)
		if err != nil {
			return nil, err
		}
		tree = append(tree, hydrate(item, entry))
	}
	return tree, nil
}

func hydrate(item, entry Item) Item {
	inline := make(map[string]string, len(entry.Files))
	for _, f := range entry.Files {
		if f.HasContent() {
			inline[f.Path] = f.Content
		}
	}
	if len(inline) == 0 {
		return item
	}

	files := make([]File, len(item.Files))
	for i, f := range item.Files {
		if !f.HasContent() {
			f.Content = inline[f.Path]
		}
		files[i] = f
	}
	item.Files = files
	return item
}

// FetchBaseColor returns the color tokens named baseColor. An empty name
// returns nil.
func (c *Client) FetchBaseColor(ctx context.Context, baseColor string) (*BaseColor, error) {
	if baseColor == "" {
		return nil, nil
	}
	data, err := c.fetch(ctx, kindColor, ColorPath(baseColor))
	if err != nil {
		return nil, err
	}

	var color BaseColor
	err = json.Unmarshal(data, &color)
	c.metrics.RecordRegistryFetch(kindColor, err)
	if err != nil {
		return nil, errors.New(errors.CodeRegistryUnreachable).
			WithDetail("could not parse base color " + baseColor).
			Wrap(err)
	}
	return &color, nil
}

// fetch loads one document. Transport failures are recorded here; decode
// results are recorded by the caller.
func (c *Client) fetch(ctx context.Context, kind, path string) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "registry.fetch",
		attribute.String("registry.kind", kind),
		attribute.String("registry.path", path),
	)

	data, err := c.source.Fetch(ctx, path)
	if err != nil {
		c.metrics.RecordRegistryFetch(kind, err)
		c.logger.Debug("registry fetch failed", "path", path, "error", err)
		err = errors.New(errors.CodeRegistryUnreachable).
			WithDetail(fmt.Sprintf("could not fetch %s from %v", path, c.source)).
			WithSuggestion("Check your internet connection and the registry URL in components.json").
			Wrap(err)
	}
	telemetry.EndSpan(span, err)
	return data, err
}
