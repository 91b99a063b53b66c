package listings

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/sublease/internal/model"
)

// Feed returns the swipe candidates for the signed-in user: listings matching f minus
// the user's own listings and minus listings already liked. Skip and Limit page the
// candidates, not the raw listings. The two fetches run concurrently; a failed liked
// fetch degrades to an empty liked set.
func (c *Client) Feed(ctx context.Context, f model.ListingFilter) (model.Listings, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	me, err := c.requireUser()
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	var all, liked model.Listings
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = c.collect(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = c.Liked(gctx)
		if err != nil {
			c.log.Warn("liked listings unavailable, feed may repeat liked items", zap.Error(err))
			liked = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	if !c.serverFilter {
		all = f.Select(all)
	}

	skip := make(map[int64]bool, len(liked))
	for _, l := range liked {
		skip[l.ID] = true
	}
	out := make(model.Listings, 0, len(all))
	for _, l := range all {
		if l.UserID == me || skip[l.ID] {
			continue
		}
		out = append(out, l)
	}
	return f.Page(out), nil
}
