package tor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Resolver picks the proxy used for each scan.
//
// Order: the configured address, the embedded daemon when running, then
// auto-detection over Candidates. The last working address is cached and
// re-probed before reuse.
type Resolver struct {
	configured string
	candidates []string
	embedded   *EmbeddedTor
	timeout    time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	last string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConfiguredProxy pins the proxy address. Auto-detection still runs
// when it stops answering.
func WithConfiguredProxy(addr string) ResolverOption {
	return func(r *Resolver) {
		r.configured = addr
	}
}

// WithCandidates sets the auto-detection addresses.
func WithCandidates(addrs []string) ResolverOption {
	return func(r *Resolver) {
		r.candidates = addrs
	}
}

// WithEmbedded makes the resolver prefer a running embedded daemon.
func WithEmbedded(e *EmbeddedTor) ResolverOption {
	return func(r *Resolver) {
		r.embedded = e
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver returns a resolver whose clients use timeout.
func NewResolver(timeout time.Duration, opts ...ResolverOption) *Resolver {
	r := &Resolver{timeout: timeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Client returns a Tor client for the first working proxy.
func (r *Resolver) Client(ctx context.Context) (*Client, error) {
	addr, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return NewClient(addr, r.timeout)
}

// Resolve returns the address of the first working proxy.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	var ordered []string
	r.mu.Lock()
	if r.last != "" {
		ordered = append(ordered, r.last)
	}
	r.mu.Unlock()

	if r.configured != "" {
		ordered = append(ordered, r.configured)
	}
	if r.embedded != nil && r.embedded.IsRunning() {
		ordered = append(ordered, r.embedded.SocksAddr())
	}
	ordered = append(ordered, r.candidates...)

	addr, err := DetectProxy(ctx, dedupe(ordered))
	if err != nil {
		return "", fmt.Errorf("%w (tried %v)", err, dedupe(ordered))
	}

	r.mu.Lock()
	if r.last != addr {
		r.logger.Info("using Tor proxy", "address", addr)
	}
	r.last = addr
	r.mu.Unlock()
	return addr, nil
}

// Active reports whether any proxy currently answers.
func (r *Resolver) Active(ctx context.Context) bool {
	_, err := r.Resolve(ctx)
	return err == nil
}

func dedupe(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
