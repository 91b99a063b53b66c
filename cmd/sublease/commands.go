package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/likes"
	"github.com/and161185/sublease/internal/model"
	"github.com/and161185/sublease/internal/session"
)

// usageError is a malformed command line; run exits with code 2.
type usageError string

func (e usageError) Error() string { return string(e) }

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError(fs.Name() + ": " + err.Error())
	}
	if fs.NArg() > 0 {
		return usageError(fmt.Sprintf("%s: unexpected argument %q", fs.Name(), fs.Arg(0)))
	}
	return nil
}

func needID(name string, id int64) error {
	if id <= 0 {
		return usageError(name + ": need -id")
	}
	return nil
}

// dispatch runs command cmd with its own flags.
func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.cmdSignup(ctx, args)
	case "verify":
		return a.cmdVerify(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		if err := parse(newFlagSet(cmd), args); err != nil {
			return err
		}
		if err := a.sess.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
		return nil
	case "me":
		if err := parse(newFlagSet(cmd), args); err != nil {
			return err
		}
		u, err := a.sess.Refresh(ctx)
		if err != nil {
			return err
		}
		return printJSON(a.out, u)
	case "list", "feed":
		return a.cmdList(ctx, cmd, args)
	case "get":
		return a.cmdGet(ctx, args)
	case "mine", "liked":
		if err := parse(newFlagSet(cmd), args); err != nil {
			return err
		}
		var (
			ls  model.Listings
			err error
		)
		if cmd == "mine" {
			ls, err = a.lists.Mine(ctx)
		} else {
			ls, err = a.lists.Liked(ctx)
		}
		if err != nil {
			return err
		}
		return printListings(a.out, ls)
	case "create":
		return a.cmdCreate(ctx, args)
	case "update":
		return a.cmdUpdate(ctx, args)
	case "rm":
		return a.cmdRemove(ctx, args)
	case "like", "unlike":
		return a.cmdLike(ctx, cmd, args)
	case "interested":
		fs := newFlagSet(cmd)
		id := fs.Int64("id", 0, "listing id")
		if err := parse(fs, args); err != nil {
			return err
		}
		if err := needID(cmd, *id); err != nil {
			return err
		}
		if err := a.lists.MarkInterested(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
		return nil
	case "convs":
		return a.cmdConversations(ctx, args)
	case "msgs", "read":
		return a.cmdThread(ctx, cmd, args)
	case "send":
		return a.cmdSend(ctx, args)
	}
	return usageError("unknown command " + cmd)
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	fs := newFlagSet("signup")
	var f session.SignupForm
	fs.StringVar(&f.Username, "u", "", "username")
	fs.StringVar(&f.Email, "email", "", "email")
	fs.StringVar(&f.Password, "p", "", "password")
	fs.StringVar(&f.ConfirmPassword, "confirm", "", "password again")
	if err := parse(fs, args); err != nil {
		return err
	}
	v, err := a.sess.Signup(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account created; a 6-digit code was sent to %s\nrun: sublease verify -email %s -code <code>\n", v.Email, v.Email)
	return nil
}

func (a *app) cmdVerify(ctx context.Context, args []string) error {
	fs := newFlagSet("verify")
	email := fs.String("email", "", "email the code was sent to")
	code := fs.String("code", "", "6-digit code")
	user := fs.String("u", "", "username (sign-in verification)")
	pass := fs.String("p", "", "password (sign-in verification)")
	if err := parse(fs, args); err != nil {
		return err
	}

	var v *session.Verification
	if *user != "" {
		v = a.sess.VerifySignIn(*user, *pass, *email)
	} else {
		v = a.sess.VerifySignUp(*email)
	}
	if err := v.Submit(ctx, *code); err != nil {
		return err
	}
	if v.SignIn() {
		u, _ := a.sess.CurrentUser()
		fmt.Fprintf(a.out, "verified; signed in as %s\n", u.Username)
		return nil
	}
	fmt.Fprintln(a.out, "verified; you can now log in")
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	err := a.sess.Login(ctx, *user, *pass)
	if errors.Is(err, errs.ErrNotVerified) {
		fmt.Fprintf(a.out, "account not verified; run: sublease verify -u %s -p <password> [-email <addr>] -code <code>\n", *user)
		return err
	}
	if err != nil {
		return err
	}
	u, _ := a.sess.CurrentUser()
	fmt.Fprintf(a.out, "signed in as %s\n", u.Username)
	return nil
}

func (a *app) cmdList(ctx context.Context, cmd string, args []string) error {
	fs := newFlagSet(cmd)
	f := filterFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	filter, err := f.filter(fs)
	if err != nil {
		return err
	}
	var ls model.Listings
	if cmd == "feed" {
		ls, err = a.lists.Feed(ctx, filter)
	} else {
		ls, err = a.lists.List(ctx, filter)
	}
	if err != nil {
		return err
	}
	return printListings(a.out, ls)
}

func (a *app) cmdGet(ctx context.Context, args []string) error {
	fs := newFlagSet("get")
	id := fs.Int64("id", 0, "listing id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := needID("get", *id); err != nil {
		return err
	}
	l, err := a.lists.Get(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(a.out, l)
}

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	lf := listingFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	in, err := lf.create()
	if err != nil {
		return err
	}
	l, err := a.lists.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created listing %d\n", l.ID)
	return nil
}

func (a *app) cmdUpdate(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	id := fs.Int64("id", 0, "listing id")
	lf := listingFlags(fs)
	status := fs.String("status", "", "status")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := needID("update", *id); err != nil {
		return err
	}
	in, err := lf.update(fs)
	if err != nil {
		return err
	}
	if isSet(fs, "status") {
		in.Status = status
	}
	l, err := a.lists.Update(ctx, *id, in)
	if err != nil {
		return err
	}
	return printJSON(a.out, l)
}

func (a *app) cmdRemove(ctx context.Context, args []string) error {
	fs := newFlagSet("rm")
	id := fs.Int64("id", 0, "listing id")
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := needID("rm", *id); err != nil {
		return err
	}
	if !*yes {
		return usageError(fmt.Sprintf("rm: deleting listing %d cannot be undone; pass -yes to confirm", *id))
	}
	if err := a.lists.Remove(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted listing %d\n", *id)
	return nil
}

func (a *app) cmdLike(ctx context.Context, cmd string, args []string) error {
	fs := newFlagSet(cmd)
	id := fs.Int64("id", 0, "listing id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := needID(cmd, *id); err != nil {
		return err
	}
	unsub := a.likes.Subscribe(func(ev likes.Event) {
		a.log.Debug("like state", zap.Int64("listing_id", ev.ListingID), zap.Stringer("state", ev.State), zap.Error(ev.Err))
	})
	defer unsub()

	var err error
	if cmd == "like" {
		err = a.likes.Like(ctx, *id)
	} else {
		err = a.likes.Unlike(ctx, *id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "listing %d: %s\n", *id, a.likes.State(*id))
	return nil
}

func (a *app) cmdConversations(ctx context.Context, args []string) error {
	if err := parse(newFlagSet("convs"), args); err != nil {
		return err
	}
	cs, err := a.msgs.Conversations(ctx)
	if err != nil {
		return err
	}
	return printConversations(a.out, cs)
}

func (a *app) cmdThread(ctx context.Context, cmd string, args []string) error {
	fs := newFlagSet(cmd)
	with := fs.Int64("with", 0, "other user id")
	listing := fs.Int64("listing", 0, "listing id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *with <= 0 || *listing <= 0 {
		return usageError(cmd + ": need -with and -listing")
	}
	if cmd == "read" {
		if err := a.msgs.MarkRead(ctx, *with, *listing); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
		return nil
	}
	th := a.msgs.NewThread(*with, *listing)
	defer th.Close()
	if err := th.Load(ctx); err != nil {
		return err
	}
	return printMessages(a.out, th.Messages())
}

func (a *app) cmdSend(ctx context.Context, args []string) error {
	fs := newFlagSet("send")
	to := fs.Int64("to", 0, "receiver user id")
	listing := fs.Int64("listing", 0, "listing id")
	text := fs.String("text", "", "message text ('-' reads stdin)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *to <= 0 || *listing <= 0 {
		return usageError("send: need -to and -listing")
	}
	body := *text
	if body == "-" {
		b, err := readAll("-")
		if err != nil {
			return err
		}
		body = strings.TrimRight(string(b), "\n")
	}
	m, err := a.msgs.Send(ctx, model.MessageCreate{Text: body, ListingID: *listing, ReceiverID: *to})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sent message %d\n", m.ID)
	return nil
}
