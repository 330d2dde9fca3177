package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/funnelhq/funnel/pkg/apierror"
	"github.com/funnelhq/funnel/pkg/client"
	"github.com/funnelhq/funnel/pkg/observability"
)

// Resource describes one REST collection. ListOnly marks collections whose
// backend lacks a single-item endpoint; GetOne for those falls back to a
// large-page list fetch plus a client-side scan.
type Resource struct {
	Name     string
	Path     string
	ListOnly bool
}

// ListResult is the normalized list envelope: always a data array plus a
// total, regardless of which of the three shapes the server returned
type ListResult struct {
	Data  []json.RawMessage
	Total int
}

// Options configures a Provider
type Options struct {
	Client  *client.Client
	Metrics *observability.Metrics
	Logger  *observability.Logger

	// CacheSize bounds the GetOne LRU; zero selects a default
	CacheSize int

	// ScanPageSize is the page fetched for list-only GetOne fallbacks
	ScanPageSize int
}

// Provider translates generic resource operations into REST calls. It never
// retries and never swallows errors: classified failures from the client
// pass through unchanged so the auth layer gets first right of refusal.
type Provider struct {
	client       *client.Client
	resources    map[string]Resource
	cache        *lru.Cache[string, json.RawMessage]
	metrics      *observability.Metrics
	logger       *observability.Logger
	scanPageSize int
}

const (
	defaultCacheSize    = 512
	defaultScanPageSize = 1000
)

// New creates a Provider with the standard CRM resources registered
func New(opts Options) (*Provider, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, json.RawMessage](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}
	scanSize := opts.ScanPageSize
	if scanSize <= 0 {
		scanSize = defaultScanPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	p := &Provider{
		client:       opts.Client,
		resources:    make(map[string]Resource),
		cache:        cache,
		metrics:      opts.Metrics,
		logger:       logger,
		scanPageSize: scanSize,
	}
	for _, r := range []Resource{
		{Name: "lead", ListOnly: true},
		{Name: "interaction"},
		{Name: "appointment"},
		{Name: "contact"},
		{Name: "user"},
		{Name: "task"},
		{Name: "company"},
		{Name: "deal"},
	} {
		p.Register(r)
	}
	return p, nil
}

// Register adds or replaces a resource definition
func (p *Provider) Register(r Resource) {
	if r.Path == "" {
		r.Path = "/" + r.Name
	}
	p.resources[r.Name] = r
}

func (p *Provider) resource(name string) (Resource, error) {
	r, ok := p.resources[name]
	if !ok {
		return Resource{}, fmt.Errorf("unknown resource %q", name)
	}
	return r, nil
}

// List fetches a page of records with filters and sorters applied
func (p *Provider) List(ctx context.Context, resource string, params ListParams) (ListResult, error) {
	r, err := p.resource(resource)
	if err != nil {
		return ListResult{}, err
	}

	payload, err := p.client.Get(ctx, r.Path, buildQuery(params))
	if err != nil {
		return ListResult{}, err
	}
	return normalizeList(payload)
}

// GetOne fetches a single record. List-only resources are resolved via a
// large-page fetch and a linear scan, with hits memoized in the LRU.
func (p *Provider) GetOne(ctx context.Context, resource, id string) (json.RawMessage, error) {
	r, err := p.resource(resource)
	if err != nil {
		return nil, err
	}

	key := resource + "/" + id
	if record, ok := p.cache.Get(key); ok {
		if p.metrics != nil {
			p.metrics.CacheHitsTotal.Inc()
		}
		return record, nil
	}
	if p.metrics != nil {
		p.metrics.CacheMissesTotal.Inc()
	}

	if !r.ListOnly {
		record, err := p.client.Get(ctx, r.Path+"/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, err
		}
		p.cache.Add(key, record)
		return record, nil
	}

	result, err := p.List(ctx, resource, ListParams{
		Pagination: Pagination{Mode: PaginationServer, Page: 1, PageSize: p.scanPageSize},
	})
	if err != nil {
		return nil, err
	}
	for _, record := range result.Data {
		if recordID(record) == id {
			p.cache.Add(key, record)
			return record, nil
		}
	}
	return nil, apierror.RecordNotFound(resource, id)
}

// Create posts a new record and returns the server's copy
func (p *Provider) Create(ctx context.Context, resource string, variables interface{}) (json.RawMessage, error) {
	r, err := p.resource(resource)
	if err != nil {
		return nil, err
	}
	return p.client.Post(ctx, r.Path, variables)
}

// Update PUTs the variables through unchanged and returns the updated record
func (p *Provider) Update(ctx context.Context, resource, id string, variables interface{}) (json.RawMessage, error) {
	r, err := p.resource(resource)
	if err != nil {
		return nil, err
	}
	record, err := p.client.Put(ctx, r.Path+"/"+url.PathEscape(id), variables)
	if err != nil {
		return nil, err
	}
	p.cache.Remove(resource + "/" + id)
	return record, nil
}

// Delete removes a record
func (p *Provider) Delete(ctx context.Context, resource, id string) error {
	r, err := p.resource(resource)
	if err != nil {
		return err
	}
	if _, err := p.client.Delete(ctx, r.Path+"/"+url.PathEscape(id)); err != nil {
		return err
	}
	p.cache.Remove(resource + "/" + id)
	return nil
}

// normalizeList accepts the three envelope shapes the backend is known to
// produce: {items, total}, {data, total}, and a bare array. Total falls back
// to the array length when the server omits it.
func normalizeList(payload json.RawMessage) (ListResult, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var data []json.RawMessage
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return ListResult{}, fmt.Errorf("malformed list response: %w", err)
		}
		return ListResult{Data: data, Total: len(data)}, nil
	}

	var envelope struct {
		Items []json.RawMessage `json:"items"`
		Data  []json.RawMessage `json:"data"`
		Total *int              `json:"total"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return ListResult{}, fmt.Errorf("malformed list response: %w", err)
	}

	data := envelope.Items
	if data == nil {
		data = envelope.Data
	}
	if data == nil {
		data = []json.RawMessage{}
	}
	total := len(data)
	if envelope.Total != nil {
		total = *envelope.Total
	}
	return ListResult{Data: data, Total: total}, nil
}

// recordID extracts a record's id field as a string, tolerating numeric ids
func recordID(record json.RawMessage) string {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(record, &probe); err != nil || probe.ID == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(probe.ID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(probe.ID, &n); err == nil {
		return n.String()
	}
	return ""
}
