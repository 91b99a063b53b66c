package messaging

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/model"
)

// Thread is the local buffer of one conversation. Sent messages are appended to the
// buffer instead of re-fetching the thread. After Close, results of calls still in
// flight are dropped.
type Thread struct {
	c         *Client
	otherUser int64
	listing   int64

	mu     sync.Mutex
	msgs   []model.Message
	closed bool
}

// NewThread returns an empty buffer for the conversation with otherUserID about listingID.
func (c *Client) NewThread(otherUserID, listingID int64) *Thread {
	return &Thread{c: c, otherUser: otherUserID, listing: listingID}
}

// Load replaces the buffer with the server's thread and marks it read.
func (t *Thread) Load(ctx context.Context) error {
	ms, err := t.c.Messages(ctx, t.otherUser, t.listing)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errs.ErrClosed
	}
	t.msgs = ms
	t.mu.Unlock()

	if err := t.c.MarkRead(ctx, t.otherUser, t.listing); err != nil {
		t.c.log.Warn("mark read", zap.Int64("listing_id", t.listing), zap.Error(err))
	}
	return nil
}

// Send posts text to the other participant and appends the stored message.
func (t *Thread) Send(ctx context.Context, text string) (model.Message, error) {
	if t.isClosed() {
		return model.Message{}, errs.ErrClosed
	}
	m, err := t.c.Send(ctx, model.MessageCreate{Text: text, ListingID: t.listing, ReceiverID: t.otherUser})
	if err != nil {
		return model.Message{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return m, errs.ErrClosed
	}
	t.msgs = append(t.msgs, m)
	return m, nil
}

// Messages returns a copy of the buffer.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.msgs)
}

// Close detaches the thread; later results are not applied.
func (t *Thread) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Thread) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
