package scraper

import (
	"context"
	"fmt"

	"github.com/nao1215/onionboard/internal/tor"
)

// Factory returns a Scanner ready for one scan. Implementations resolve
// the Tor proxy at call time, so a proxy started after the backend is
// picked up.
type Factory func(ctx context.Context) (*Scanner, error)

// TorFactory builds scanners routed through the first working proxy the
// resolver finds.
func TorFactory(resolver *tor.Resolver, opts ...Option) Factory {
	return func(ctx context.Context) (*Scanner, error) {
		client, err := resolver.Client(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve Tor proxy: %w", err)
		}
		return NewScanner(client.NewHTTPClient(), opts...), nil
	}
}
