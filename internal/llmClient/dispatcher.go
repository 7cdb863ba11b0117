package llmclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Factory builds the raw client for a provider and credential.
type Factory func(ctx context.Context, provider Provider, credential string) (Client, error)

// FactoryConfig configures DefaultFactory.
type FactoryConfig struct {
	GeminiModel string
	GroqModel   string
	GroqBaseURL string
	HTTPClient  *http.Client
	// Fake answers every provider with FakeClient.
	Fake bool
}

// DefaultFactory builds Gemini and Groq clients, or fakes when cfg.Fake.
func DefaultFactory(cfg FactoryConfig) Factory {
	return func(ctx context.Context, provider Provider, credential string) (Client, error) {
		if cfg.Fake {
			return &FakeClient{}, nil
		}
		switch provider {
		case ProviderGemini:
			return NewGeminiClient(ctx, credential, cfg.GeminiModel)
		case ProviderGroq:
			return NewGroqClient(credential, GroqOptions{
				Model:      cfg.GroqModel,
				BaseURL:    cfg.GroqBaseURL,
				HTTPClient: cfg.HTTPClient,
			}), nil
		default:
			return nil, NewPermanentError(fmt.Errorf("unknown provider %q", provider))
		}
	}
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Factory     Factory
	Middlewares []Middleware
	// CacheSize bounds how many provider clients stay open. Defaults to 8.
	CacheSize int
	Logger    *zap.Logger
}

type clientKey struct {
	provider Provider
	secret   string // sha256 of the credential
}

// Dispatcher implements Gateway. It keeps one wrapped client per provider
// and credential in an LRU and closes clients as they are evicted.
type Dispatcher struct {
	factory Factory
	mws     []Middleware
	log     *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache[clientKey, Client]
}

func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Factory == nil {
		return nil, errors.New("llmclient: factory is required")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 8
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.NewWithEvict[clientKey, Client](size, func(k clientKey, c Client) {
		if err := c.Close(); err != nil {
			log.Debug("llm client close failed", zap.String("provider", string(k.provider)), zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	return &Dispatcher{factory: opts.Factory, mws: opts.Middlewares, log: log, cache: cache}, nil
}

// Generate routes req to its provider. Every provider failure comes back as
// a *ModelError.
func (d *Dispatcher) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", ErrNoCredential
	}
	cli, err := d.client(ctx, req.Provider, req.Credential)
	if err != nil {
		return "", &ModelError{Provider: req.Provider, Err: err}
	}
	out, err := cli.Generate(ctx, req)
	if err != nil {
		var me *ModelError
		if errors.As(err, &me) {
			return "", err
		}
		return "", &ModelError{Provider: req.Provider, Err: err}
	}
	return out, nil
}

func (d *Dispatcher) client(ctx context.Context, provider Provider, credential string) (Client, error) {
	sum := sha256.Sum256([]byte(credential))
	key := clientKey{provider: provider, secret: hex.EncodeToString(sum[:])}

	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.cache.Get(key); ok {
		return c, nil
	}
	raw, err := d.factory(ctx, provider, credential)
	if err != nil {
		return nil, err
	}
	c := Wrap(raw, d.mws...)
	d.cache.Add(key, c)
	d.log.Debug("llm client created", zap.String("client", c.Name()))
	return c, nil
}

// Close closes every cached client.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Purge()
	return nil
}
