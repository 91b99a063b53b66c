// Package listings is the typed client for listing CRUD, search and likes.
package listings

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/and161185/sublease/internal/api"
	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/model"
)

// Session is the view of the auth session the client needs.
type Session interface {
	api.Credentials
	UserID() (int64, bool)
}

// Client calls the /listings endpoints. It keeps no listing state between calls.
type Client struct {
	b            api.Bearer
	sess         Session
	serverFilter bool
	log          *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithServerFilter tells the client whether GET /listings/ filters server-side. When
// false, List fetches every page and applies the filter locally.
func WithServerFilter(on bool) Option { return func(c *Client) { c.serverFilter = on } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New returns a Client sending requests through d with the token of sess.
func New(d api.Doer, sess Session, opts ...Option) *Client {
	c := &Client{b: api.Bearer{Doer: d, Creds: sess}, sess: sess, serverFilter: true, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

func path(id int64, suffix string) string {
	return "/listings/" + strconv.FormatInt(id, 10) + suffix
}

// maxScanPages bounds the pages collect walks through.
const maxScanPages = 100

// List returns listings matching f. Without server-side filtering every page is fetched
// and the filter, pagination included, is applied to the whole set.
func (c *Client) List(ctx context.Context, f model.ListingFilter) (model.Listings, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if !c.serverFilter {
		all, err := c.collect(ctx, f)
		if err != nil {
			return nil, err
		}
		out := model.Listings(f.Apply(all))
		c.log.Debug("filtered listings locally", zap.Int("scanned", len(all)), zap.Int("matched", len(out)))
		return out, nil
	}
	var out model.Listings
	if err := c.b.Do(ctx, api.Request{Method: http.MethodGet, Path: "/listings/", Query: f.Query()}, &out); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return out, nil
}

// collect pages through GET /listings/ until a short page. With server-side filtering
// the predicates of f travel with every page; Skip and Limit of f are ignored.
func (c *Client) collect(ctx context.Context, f model.ListingFilter) (model.Listings, error) {
	base := url.Values{}
	if c.serverFilter {
		base = f.Query()
		base.Del("skip")
		base.Del("limit")
	}
	var out model.Listings
	for page := range maxScanPages {
		q := maps.Clone(base)
		q.Set("skip", strconv.Itoa(page*model.MaxPageSize))
		q.Set("limit", strconv.Itoa(model.MaxPageSize))
		var batch model.Listings
		if err := c.b.Do(ctx, api.Request{Method: http.MethodGet, Path: "/listings/", Query: q}, &batch); err != nil {
			return nil, fmt.Errorf("list listings page %d: %w", page, err)
		}
		out = append(out, batch...)
		if len(batch) < model.MaxPageSize {
			return out, nil
		}
	}
	c.log.Warn("listing scan truncated", zap.Int("pages", maxScanPages), zap.Int("listings", len(out)))
	return out, nil
}

// Get returns one listing.
func (c *Client) Get(ctx context.Context, id int64) (model.Listing, error) {
	var out model.Listing
	if err := c.b.Do(ctx, api.Request{Method: http.MethodGet, Path: path(id, "")}, &out); err != nil {
		return model.Listing{}, fmt.Errorf("get listing %d: %w", id, err)
	}
	return out, nil
}

// Mine returns the listings owned by the signed-in user.
func (c *Client) Mine(ctx context.Context) (model.Listings, error) {
	var out model.Listings
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodGet, Path: "/listings/my/listings"}, &out); err != nil {
		return nil, fmt.Errorf("my listings: %w", err)
	}
	return out, nil
}

// Create publishes a new listing owned by the signed-in user.
func (c *Client) Create(ctx context.Context, in model.ListingCreate) (model.Listing, error) {
	if err := in.Validate(); err != nil {
		return model.Listing{}, err
	}
	var out model.Listing
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPost, Path: "/listings/", JSON: in}, &out); err != nil {
		return model.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	return out, nil
}

// Update applies the set fields of in to listing id.
func (c *Client) Update(ctx context.Context, id int64, in model.ListingUpdate) (model.Listing, error) {
	if err := in.Validate(); err != nil {
		return model.Listing{}, err
	}
	var out model.Listing
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPut, Path: path(id, ""), JSON: in}, &out); err != nil {
		return model.Listing{}, fmt.Errorf("update listing %d: %w", id, err)
	}
	return out, nil
}

// Remove deletes listing id. It cannot be undone; callers confirm with the user first.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodDelete, Path: path(id, "")}, nil); err != nil {
		return fmt.Errorf("delete listing %d: %w", id, err)
	}
	c.log.Info("listing deleted", zap.Int64("listing_id", id))
	return nil
}

// MarkInterested records interest in listing id.
func (c *Client) MarkInterested(ctx context.Context, id int64) error {
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPost, Path: path(id, "/interested")}, nil); err != nil {
		return fmt.Errorf("mark interested %d: %w", id, err)
	}
	return nil
}

// Like adds listing id to the user's liked set.
func (c *Client) Like(ctx context.Context, id int64) error {
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPost, Path: path(id, "/like")}, nil); err != nil {
		return fmt.Errorf("like %d: %w", id, err)
	}
	return nil
}

// Unlike removes listing id from the user's liked set.
func (c *Client) Unlike(ctx context.Context, id int64) error {
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPost, Path: path(id, "/unlike")}, nil); err != nil {
		return fmt.Errorf("unlike %d: %w", id, err)
	}
	return nil
}

// Liked returns the listings the user liked.
func (c *Client) Liked(ctx context.Context) (model.Listings, error) {
	var out model.Listings
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodGet, Path: "/listings/liked"}, &out); err != nil {
		return nil, fmt.Errorf("liked listings: %w", err)
	}
	return out, nil
}

// requireUser returns the signed-in user's id or errs.ErrUnauthorized.
func (c *Client) requireUser() (int64, error) {
	id, ok := c.sess.UserID()
	if !ok {
		return 0, errs.ErrUnauthorized
	}
	return id, nil
}
