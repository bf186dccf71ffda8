package remoteconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"jokefeed/internal/config"
	"jokefeed/pkg/logger"

	"github.com/spf13/viper"
)

// Fetcher is the remote configuration transport: one fetch-and-activate
// round trip returning the raw key/value snapshot.
type Fetcher interface {
	FetchAndActivate(ctx context.Context) (map[string]any, error)
}

// Reader serves typed, validated, defaulted parameter values. Before Init
// has run (or if the fetch failed), every getter returns the descriptor's
// compiled-in default.
type Reader struct {
	mu          sync.RWMutex
	snapshot    *viper.Viper
	initialized bool
}

// NewReader validates the descriptor set eagerly and returns an
// uninitialized reader. A validation failure is fatal by contract.
func NewReader(params []Param) (*Reader, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	return &Reader{snapshot: viper.New()}, nil
}

// Init performs the one fetch-and-activate round trip. A fetch failure is
// logged once and the reader still marks itself initialized so later reads
// serve defaults instead of retrying the network.
func (r *Reader) Init(ctx context.Context, f Fetcher) {
	values, err := f.FetchAndActivate(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		logger.Warn("Remote config fetch failed, using compiled-in defaults", logger.Err(err))
		r.initialized = true
		return
	}

	for k, v := range values {
		r.snapshot.Set(k, v)
	}
	r.initialized = true

	logger.Info("Remote config activated", logger.Int("params", len(values)))
}

// Initialized reports whether Init has completed (successfully or not).
func (r *Reader) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Reader) GetInt(p Param) int {
	def, _ := p.Default.(int)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized || !r.snapshot.IsSet(p.Key) {
		return def
	}
	v := r.snapshot.GetInt(p.Key)
	if p.Validate != nil && !p.Validate(v) {
		return def
	}
	return v
}

func (r *Reader) GetBool(p Param) bool {
	def, _ := p.Default.(bool)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized || !r.snapshot.IsSet(p.Key) {
		return def
	}
	v := r.snapshot.GetBool(p.Key)
	if p.Validate != nil && !p.Validate(v) {
		return def
	}
	return v
}

func (r *Reader) GetDouble(p Param) float64 {
	def, _ := p.Default.(float64)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized || !r.snapshot.IsSet(p.Key) {
		return def
	}
	v := r.snapshot.GetFloat64(p.Key)
	if p.Validate != nil && !p.Validate(v) {
		return def
	}
	return v
}

func (r *Reader) GetString(p Param) string {
	def, _ := p.Default.(string)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized || !r.snapshot.IsSet(p.Key) {
		return def
	}
	v := r.snapshot.GetString(p.Key)
	if p.Validate != nil && !p.Validate(v) {
		return def
	}
	return v
}

// GetEnum resolves the fetched symbol case-insensitively against the
// descriptor's permitted set, returning the canonical symbol. Any miss
// falls back to the descriptor's default symbol.
func (r *Reader) GetEnum(p Param) string {
	def, _ := p.Default.(string)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized || !r.snapshot.IsSet(p.Key) {
		return def
	}

	raw := r.snapshot.GetString(p.Key)
	for _, v := range p.EnumValues {
		if strings.EqualFold(v, raw) {
			return v
		}
	}
	return def
}

// HTTPFetcher fetches the remote configuration snapshot as a flat JSON
// object from a configured endpoint.
type HTTPFetcher struct {
	cfg    config.RemoteConfigConfig
	client *http.Client
}

func NewHTTPFetcher(cfg config.RemoteConfigConfig, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type FetcherOption func(*HTTPFetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

func (f *HTTPFetcher) FetchAndActivate(ctx context.Context) (map[string]any, error) {
	if f.cfg.URL == "" {
		return nil, fmt.Errorf("remote config url is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote config returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote config body: %w", err)
	}

	var values map[string]any
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("failed to parse remote config: %w", err)
	}

	return values, nil
}
