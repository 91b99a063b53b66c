package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/and161185/sublease/internal/errs"
)

// Message is a single immutable chat message about a listing.
type Message struct {
	ID               int64  `json:"id"`
	Text             string `json:"text"`
	SenderID         int64  `json:"sender_id"`
	ReceiverID       int64  `json:"receiver_id"`
	ListingID        int64  `json:"listing_id"`
	IsRead           bool   `json:"is_read"`
	CreatedAt        Time   `json:"created_at"`
	SenderUsername   string `json:"sender_username"`
	ReceiverUsername string `json:"receiver_username"`
}

func (m Message) Validate() error {
	switch {
	case m.ID <= 0:
		return errors.New("message: missing id")
	case m.SenderID <= 0 || m.ReceiverID <= 0:
		return fmt.Errorf("message %d: missing participants", m.ID)
	case m.ListingID <= 0:
		return fmt.Errorf("message %d: missing listing_id", m.ID)
	}
	return nil
}

// Messages is a decoded thread.
type Messages []Message

func (ms Messages) Validate() error {
	for i := range ms {
		if err := ms[i].Validate(); err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	return nil
}

// SortMessages orders ms chronologically; ties keep id order.
func SortMessages(ms []Message) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if !a.CreatedAt.Equal(b.CreatedAt.Time) {
			return a.CreatedAt.Before(b.CreatedAt.Time)
		}
		return a.ID < b.ID
	})
}

// MessageCreate is the payload of POST /listings/messages.
type MessageCreate struct {
	Text       string `json:"text"`
	ListingID  int64  `json:"listing_id"`
	ReceiverID int64  `json:"receiver_id"`
}

// Validate rejects empty or whitespace-only text.
func (c MessageCreate) Validate() error {
	switch {
	case strings.TrimSpace(c.Text) == "":
		return errs.Validation("text", "Message cannot be empty")
	case c.ListingID <= 0:
		return errs.Validation("listing_id", "Listing is required")
	case c.ReceiverID <= 0:
		return errs.Validation("receiver_id", "Receiver is required")
	}
	return nil
}

// Conversation is the server-side aggregate of a thread between two users about one listing.
type Conversation struct {
	ID              int64  `json:"id"`
	OtherUserID     int64  `json:"other_user_id"`
	OtherUserName   string `json:"other_user_name"`
	ListingID       int64  `json:"listing_id"`
	ListingTitle    string `json:"listing_title"`
	LastMessage     string `json:"last_message"`
	LastMessageTime Time   `json:"last_message_time"`
	UnreadCount     int    `json:"unread_count"`
}

func (c Conversation) Validate() error {
	if c.OtherUserID <= 0 || c.ListingID <= 0 {
		return errors.New("conversation: missing other_user_id/listing_id")
	}
	if c.UnreadCount < 0 {
		return errors.New("conversation: negative unread_count")
	}
	return nil
}

// Conversations is a decoded list response.
type Conversations []Conversation

func (cs Conversations) Validate() error {
	for i := range cs {
		if err := cs[i].Validate(); err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	return nil
}
