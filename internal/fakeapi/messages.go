package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/and161185/sublease/internal/model"
)

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var c model.MessageCreate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid message")
		return
	}
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[c.ListingID]; !ok {
		writeDetail(w, http.StatusNotFound, "Listing not found")
		return
	}
	recv, ok := s.users[c.ReceiverID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Receiver not found")
		return
	}
	if uid == c.ReceiverID {
		writeDetail(w, http.StatusBadRequest, "Cannot send message to yourself")
		return
	}
	m := model.Message{
		ID:               s.id(),
		Text:             c.Text,
		SenderID:         uid,
		ReceiverID:       c.ReceiverID,
		ListingID:        c.ListingID,
		CreatedAt:        s.now(),
		SenderUsername:   s.users[uid].Username,
		ReceiverUsername: recv.Username,
	}
	s.messages = append(s.messages, m)
	writeJSON(w, http.StatusCreated, m)
}

func inThread(m model.Message, me, other, listing int64) bool {
	if m.ListingID != listing {
		return false
	}
	return m.SenderID == me && m.ReceiverID == other || m.SenderID == other && m.ReceiverID == me
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	me, other, listing := userID(r), pathID(r, "other"), pathID(r, "listing")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Message{}
	for _, m := range s.messages {
		if inThread(m, me, other, listing) {
			out = append(out, m)
		}
	}
	model.SortMessages(out)
	s.markRead(other, me, listing)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markRead(pathID(r, "other"), userID(r), pathID(r, "listing"))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Messages marked as read"})
}

// markRead flags messages sender->receiver about listing as read; callers hold s.mu.
func (s *Server) markRead(sender, receiver, listing int64) {
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID == sender && m.ReceiverID == receiver && m.ListingID == listing {
			m.IsRead = true
		}
	}
}

// Unread counts unread messages addressed to userID.
func (s *Server) Unread(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	me := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ other, listing int64 }
	convs := map[key]*model.Conversation{}
	for _, m := range s.messages {
		if m.SenderID != me && m.ReceiverID != me {
			continue
		}
		other := m.SenderID
		if other == me {
			other = m.ReceiverID
		}
		k := key{other, m.ListingID}
		c, ok := convs[k]
		if !ok {
			c = &model.Conversation{ID: other, OtherUserID: other, ListingID: m.ListingID, OtherUserName: "Unknown", ListingTitle: "Unknown Listing"}
			if a := s.users[other]; a != nil {
				c.OtherUserName = a.Username
			}
			if l := s.listings[m.ListingID]; l != nil {
				c.ListingTitle = l.Title
			}
			convs[k] = c
		}
		if !m.CreatedAt.Before(c.LastMessageTime.Time) {
			c.LastMessage, c.LastMessageTime = m.Text, m.CreatedAt
		}
		if m.ReceiverID == me && !m.IsRead {
			c.UnreadCount++
		}
	}
	out := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime.Time) })
	writeJSON(w, http.StatusOK, out)
}
