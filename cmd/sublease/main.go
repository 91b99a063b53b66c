// Command sublease is a terminal client for the student sublease marketplace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/sublease/internal/api"
	"github.com/and161185/sublease/internal/config"
	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/likes"
	"github.com/and161185/sublease/internal/listings"
	"github.com/and161185/sublease/internal/messaging"
	"github.com/and161185/sublease/internal/session"
	"github.com/and161185/sublease/internal/tokenstore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage(w io.Writer) {
	fmt.Fprint(w, `sublease CLI
Usage:
  sublease [-api URL] [-cacert file | -insecure] [-timeout 30s] [-debug] <cmd> [args]

Account:
  signup     -u <username> -email <addr> -p <password> -confirm <password>
  verify     -email <addr> -code <6 digits>            (after signup)
  verify     -u <username> -p <password> [-email <addr>] -code <6 digits>   (unverified login)
  login      -u <username> -p <password>               (saves token)
  logout
  me

Listings:
  list       [-search s] [-min n] [-max n] [-location l] [-bedrooms n] [-skip n] [-limit n]
  feed       same filters as list; hides your own and liked listings
  get        -id <id>
  mine
  create     -title t -location l -price n -bedrooms n [-bathrooms n] -from YYYY-MM-DD
             [-desc d] [-amenities a,b] [-images file1,file2]
  update     -id <id> [any create flag] [-status s]
  rm         -id <id> -yes
  like       -id <id>
  unlike     -id <id>
  liked
  interested -id <id>

Messages:
  convs
  msgs       -with <user id> -listing <id>
  send       -to <user id> -listing <id> -text <message>
  read       -with <user id> -listing <id>

  version
`)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code:
// 0 ok, 1 command failed, 2 usage error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, ".env", usage)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}
	if len(cfg.Args) < 1 {
		usage(stderr)
		return 2
	}
	if cfg.Args[0] == "version" {
		fmt.Fprintf(stdout, "sublease %s (%s)\n", version, buildDate)
		return 0
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "error:", errs.Message(err))
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, cfg.Args[0], cfg.Args[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) || errors.Is(err, flag.ErrHelp) {
			if ue != "" {
				fmt.Fprintln(stderr, ue)
			}
			return 2
		}
		log.Debug("command failed", zap.String("cmd", cfg.Args[0]), zap.Error(err))
		fmt.Fprintln(stderr, "error:", errs.Message(err))
		return 1
	}
	return 0
}

// newLogger logs JSON to stderr; only warnings unless debug is set.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return zc.Build()
}

type app struct {
	out   io.Writer
	log   *zap.Logger
	sess  *session.Store
	lists *listings.Client
	msgs  *messaging.Client
	likes *likes.Manager
}

// newApp wires the clients and restores the persisted session.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (*app, error) {
	tlsCfg, err := api.LoadTLS(cfg.CACert, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("tls: %w", err)
	}
	client, err := api.New(cfg.APIURL, api.WithTimeout(cfg.Timeout), api.WithTLS(tlsCfg), api.WithLogger(log))
	if err != nil {
		return nil, err
	}

	policy := session.DefaultPolicy()
	policy.EmailDomain = cfg.EmailDomain
	sess := session.New(client, tokenstore.NewFile(cfg.ConfigDir), session.WithPolicy(policy), session.WithLogger(log))
	if err := sess.Init(ctx); err != nil {
		log.Warn("stored session discarded", zap.Error(err))
	}

	lists := listings.New(client, sess, listings.WithServerFilter(cfg.ServerFilter), listings.WithLogger(log))
	return &app{
		out:   out,
		log:   log,
		sess:  sess,
		lists: lists,
		msgs:  messaging.New(client, sess, log),
		likes: likes.New(lists, log),
	}, nil
}

func (a *app) close() { a.likes.Close() }
