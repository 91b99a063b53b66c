package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sublease/internal/api"
	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/fakeapi"
	"github.com/and161185/sublease/internal/model"
	"github.com/and161185/sublease/internal/session"
	"github.com/and161185/sublease/internal/tokenstore"
)

type env struct {
	fake         *fakeapi.Server
	api          *api.Client
	owner, guest model.User
	listing      model.Listing
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fake := fakeapi.New()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := api.New(srv.URL, api.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	e := &env{fake: fake, api: c}
	e.owner = fake.AddUser("owner", "owner@gmail.com", "secret1", true)
	e.guest = fake.AddUser("guest", "guest@gmail.com", "secret1", true)
	e.listing = fake.AddListing(e.owner.ID, model.ListingCreate{Title: "Studio", Location: "Downtown", Price: 900, Bedrooms: 1})
	return e
}

// as returns a messaging client signed in as username.
func (e *env) as(t *testing.T, username string) (*Client, *session.Store) {
	t.Helper()
	s := session.New(e.api, tokenstore.NewMem())
	if username != "" {
		require.NoError(t, s.Login(context.Background(), username, "secret1"))
	}
	return New(e.api, s, zaptest.NewLogger(t)), s
}

func Test_Send_BlankRejectedLocally(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	c, _ := e.as(t, "guest")

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Send(context.Background(), model.MessageCreate{Text: text, ListingID: e.listing.ID, ReceiverID: e.owner.ID})
		require.ErrorIs(t, err, errs.ErrValidation)
		require.Equal(t, "Message cannot be empty", errs.Message(err))
	}
	require.Zero(t, e.fake.Hits("send"))
}

func Test_Thread_SendAppends(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	c, _ := e.as(t, "guest")
	ctx := context.Background()

	th := c.NewThread(e.owner.ID, e.listing.ID)
	require.NoError(t, th.Load(ctx))
	require.Empty(t, th.Messages())

	m, err := th.Send(ctx, "Hello")
	require.NoError(t, err)
	require.Equal(t, e.guest.ID, m.SenderID)
	require.Equal(t, "guest", m.SenderUsername)

	got := th.Messages()
	require.Len(t, got, 1)
	require.Equal(t, "Hello", got[0].Text)
	require.Equal(t, e.guest.ID, got[0].SenderID)
	require.Equal(t, 1, e.fake.Hits("messages"), "send must not re-fetch the thread")

	_, err = th.Send(ctx, " ")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Len(t, th.Messages(), 1)
}

func Test_ConversationsAndRead(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	guest, _ := e.as(t, "guest")
	owner, _ := e.as(t, "owner")
	ctx := context.Background()

	_, err := guest.Send(ctx, model.MessageCreate{Text: "Is it free?", ListingID: e.listing.ID, ReceiverID: e.owner.ID})
	require.NoError(t, err)
	_, err = guest.Send(ctx, model.MessageCreate{Text: "  Still?  ", ListingID: e.listing.ID, ReceiverID: e.owner.ID})
	require.NoError(t, err)

	cs, err := owner.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	require.Equal(t, e.guest.ID, cs[0].OtherUserID)
	require.Equal(t, "Still?", cs[0].LastMessage)
	require.Equal(t, 2, UnreadTotal(cs))

	ms, err := owner.Messages(ctx, e.guest.ID, e.listing.ID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	require.True(t, ms[0].CreatedAt.Before(ms[1].CreatedAt.Time))

	require.NoError(t, owner.MarkRead(ctx, e.guest.ID, e.listing.ID))
	cs, err = owner.Conversations(ctx)
	require.NoError(t, err)
	require.Zero(t, UnreadTotal(cs))

	_, err = guest.Send(ctx, model.MessageCreate{Text: "hi me", ListingID: e.listing.ID, ReceiverID: e.guest.ID})
	require.ErrorIs(t, err, errs.ErrRejected)
	require.Equal(t, "Cannot send message to yourself", errs.Message(err))
}

func Test_RequiresSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	c, _ := e.as(t, "")

	_, err := c.Conversations(context.Background())
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = c.Send(context.Background(), model.MessageCreate{Text: "x", ListingID: 1, ReceiverID: 2})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.Zero(t, e.fake.Hits("conversations")+e.fake.Hits("send"))
}

func Test_Thread_CloseDropsLateResults(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	c, _ := e.as(t, "guest")
	th := c.NewThread(e.owner.ID, e.listing.ID)
	e.fake.Delay("send", 100*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	var sendErr error
	go func() {
		defer wg.Done()
		_, sendErr = th.Send(context.Background(), "late")
	}()
	require.Eventually(t, func() bool { return e.fake.Hits("send") == 1 }, time.Second, 5*time.Millisecond)
	th.Close()
	wg.Wait()

	require.ErrorIs(t, sendErr, errs.ErrClosed)
	require.Empty(t, th.Messages())
	require.ErrorIs(t, th.Load(context.Background()), errs.ErrClosed)
}

func Test_Unauthorized_DropsSession(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	c, s := e.as(t, "guest")

	e.fake.FailNext("conversations", http.StatusUnauthorized)
	_, err := c.Conversations(context.Background())
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.Empty(t, s.Token())
}
