package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nao1215/onionboard/internal/model"
)

// Resource is a settings collection with list, create, update and delete.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource returns a resource rooted at path, for example
// "/settings/keywords".
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

// List fetches every item.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.client.do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create adds item and returns the stored copy.
func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPost, r.path, item, &out)
	return out, err
}

// Update replaces the item with the given id and returns the stored copy.
func (r *Resource[T]) Update(ctx context.Context, id int64, item T) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPut, r.itemPath(id), item, &out)
	return out, err
}

// Delete removes the item with the given id.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// Keywords returns the keyword collection.
func (c *Client) Keywords() *Resource[model.Keyword] {
	return NewResource[model.Keyword](c, "/settings/keywords")
}

// UserAgents returns the user agent collection.
func (c *Client) UserAgents() *Resource[model.UserAgent] {
	return NewResource[model.UserAgent](c, "/settings/user-agents")
}

// Watchlist returns the watchlist collection.
func (c *Client) Watchlist() *Resource[model.WatchlistEntry] {
	return NewResource[model.WatchlistEntry](c, "/settings/watchlist")
}
