// Package messaging is the typed client for conversations and messages about listings.
package messaging

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/sublease/internal/api"
	"github.com/and161185/sublease/internal/model"
)

// Client calls the /listings/messages endpoints. Every call requires a session.
type Client struct {
	b   api.Bearer
	log *zap.Logger
}

// New returns a Client sending requests through d with the token of creds.
func New(d api.Doer, creds api.Credentials, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{b: api.Bearer{Doer: d, Creds: creds}, log: log}
}

func threadPath(otherUserID, listingID int64, suffix string) string {
	return "/listings/messages/" + strconv.FormatInt(otherUserID, 10) + "/" + strconv.FormatInt(listingID, 10) + suffix
}

// Conversations returns the server-computed conversation summaries of the user.
func (c *Client) Conversations(ctx context.Context) (model.Conversations, error) {
	var out model.Conversations
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodGet, Path: "/listings/messages/conversations"}, &out); err != nil {
		return nil, fmt.Errorf("conversations: %w", err)
	}
	return out, nil
}

// Messages returns the thread with otherUserID about listingID, oldest first.
func (c *Client) Messages(ctx context.Context, otherUserID, listingID int64) (model.Messages, error) {
	var out model.Messages
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodGet, Path: threadPath(otherUserID, listingID, "")}, &out); err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	model.SortMessages(out)
	return out, nil
}

// Send posts a message. Blank text is rejected before any network call.
func (c *Client) Send(ctx context.Context, in model.MessageCreate) (model.Message, error) {
	if err := in.Validate(); err != nil {
		return model.Message{}, err
	}
	in.Text = strings.TrimSpace(in.Text)
	var out model.Message
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPost, Path: "/listings/messages", JSON: in}, &out); err != nil {
		return model.Message{}, fmt.Errorf("send message: %w", err)
	}
	return out, nil
}

// MarkRead marks the messages otherUserID sent about listingID as read.
func (c *Client) MarkRead(ctx context.Context, otherUserID, listingID int64) error {
	if err := c.b.MustDo(ctx, api.Request{Method: http.MethodPost, Path: threadPath(otherUserID, listingID, "/read")}, nil); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// UnreadTotal sums the unread counts of cs.
func UnreadTotal(cs model.Conversations) int {
	n := 0
	for _, c := range cs {
		n += c.UnreadCount
	}
	return n
}
