package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/sublease/internal/config"
	"github.com/and161185/sublease/internal/fakeapi"
	"github.com/and161185/sublease/internal/model"
)

type cli struct {
	t   *testing.T
	url string
	dir string
}

func newCLI(t *testing.T) (*cli, *fakeapi.Server) {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvConfigDir, config.EnvTimeout, config.EnvEmailDomain, config.EnvServerFilter, config.EnvDebug} {
		t.Setenv(k, "")
	}
	fake := fakeapi.New()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return &cli{t: t, url: srv.URL, dir: t.TempDir()}, fake
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-api", c.url, "-config-dir", c.dir}, args...)
	code := run(context.Background(), full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, 0, code, "%v: stderr=%s", args, errOut)
	return out
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func Test_run_VersionAndUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"version"}, &out, &errOut))
	require.Contains(t, out.String(), "sublease dev")

	out.Reset()
	require.Equal(t, 2, run(context.Background(), nil, &out, &errOut))
	require.Contains(t, errOut.String(), "Usage:")

	c, _ := newCLI(t)
	code, _, stderr := c.run("bogus")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "unknown command")

	code, _, _ = c.run("get")
	require.Equal(t, 2, code)
}

func Test_CLI_AccountFlow(t *testing.T) {
	c, fake := newCLI(t)

	code, _, stderr := c.run("signup", "-u", "alice", "-email", "alice@yahoo.com", "-p", "secret1", "-confirm", "secret1")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Only @gmail.com emails are allowed")

	out := c.ok("signup", "-u", "alice", "-email", "alice@gmail.com", "-p", "secret1", "-confirm", "secret1")
	require.Contains(t, out, "alice@gmail.com")

	code, out, stderr = c.run("login", "-u", "alice", "-p", "secret1")
	require.Equal(t, 1, code)
	require.Contains(t, out, "sublease verify")
	require.Contains(t, stderr, "not verified")

	code, _, _ = c.run("verify", "-email", "alice@gmail.com", "-code", "12")
	require.Equal(t, 1, code)

	out = c.ok("verify", "-u", "alice", "-p", "secret1", "-email", "alice@gmail.com", "-code", fake.Code("alice@gmail.com"))
	require.Contains(t, out, "signed in as alice")

	// the token survives across processes
	var u model.User
	require.NoError(t, json.Unmarshal([]byte(c.ok("me")), &u))
	require.Equal(t, "alice", u.Username)

	c.ok("logout")
	code, _, stderr = c.run("me")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Please sign in")

	out = c.ok("login", "-u", "alice", "-p", "secret1")
	require.Contains(t, out, "signed in as alice")
}

func Test_CLI_Listings(t *testing.T) {
	c, fake := newCLI(t)
	fake.AddUser("owner", "owner@gmail.com", "secret1", true)
	other := fake.AddUser("other", "other@gmail.com", "secret1", true)
	theirs := fake.AddListing(other.ID, model.ListingCreate{Title: "Garden Studio", Location: "Eastside", Price: 700, Bedrooms: 1})
	c.ok("login", "-u", "owner", "-p", "secret1")

	img := filepath.Join(t.TempDir(), "room.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	code, _, stderr := c.run("create", "-title", "Loft", "-location", "Downtown", "-price", "0", "-bedrooms", "1", "-from", "2025-09-01")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Price must be greater than 0")

	out := c.ok("create", "-title", "Downtown Loft", "-location", "Downtown", "-price", "950", "-bedrooms", "2",
		"-from", "2025-09-01", "-amenities", "wifi, laundry", "-images", img)
	require.Contains(t, out, "created listing")
	id := strings.TrimSpace(strings.TrimPrefix(out, "created listing"))

	var l model.Listing
	require.NoError(t, json.Unmarshal([]byte(c.ok("get", "-id", id)), &l))
	require.Equal(t, []string{"wifi", "laundry"}, l.Amenities)
	require.Len(t, l.Images, 1)
	require.True(t, strings.HasPrefix(l.Images[0], "data:image/png;base64,"))

	out = c.ok("list", "-search", "studio")
	require.Contains(t, out, "Garden Studio")
	require.NotContains(t, out, "Downtown Loft")

	out = c.ok("feed")
	require.Contains(t, out, "Garden Studio")
	require.NotContains(t, out, "Downtown Loft")

	out = c.ok("like", "-id", itoa(theirs.ID))
	require.Contains(t, out, "liked")
	require.Contains(t, c.ok("liked"), "Garden Studio")
	require.Contains(t, c.ok("feed"), "no listings")
	require.Contains(t, c.ok("unlike", "-id", itoa(theirs.ID)), "unliked")

	require.NoError(t, json.Unmarshal([]byte(c.ok("update", "-id", id, "-price", "900")), &l))
	require.InDelta(t, 900, l.Price, 0.001)

	c.ok("interested", "-id", itoa(theirs.ID))

	code, _, stderr = c.run("rm", "-id", id)
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "-yes")
	require.Contains(t, c.ok("mine"), "Downtown Loft")

	c.ok("rm", "-id", id, "-yes")
	require.Contains(t, c.ok("mine"), "no listings")
}

func Test_CLI_Messages(t *testing.T) {
	c, fake := newCLI(t)
	owner := fake.AddUser("owner", "owner@gmail.com", "secret1", true)
	fake.AddUser("guest", "guest@gmail.com", "secret1", true)
	l := fake.AddListing(owner.ID, model.ListingCreate{Title: "Studio", Location: "Downtown", Price: 900, Bedrooms: 1})
	c.ok("login", "-u", "guest", "-p", "secret1")

	code, _, stderr := c.run("send", "-to", itoa(owner.ID), "-listing", itoa(l.ID), "-text", "  ")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Message cannot be empty")
	require.Zero(t, fake.Hits("send"))

	require.Contains(t, c.ok("send", "-to", itoa(owner.ID), "-listing", itoa(l.ID), "-text", "Hello"), "sent message")

	out := c.ok("convs")
	require.Contains(t, out, "owner")
	require.Contains(t, out, "Hello")

	out = c.ok("msgs", "-with", itoa(owner.ID), "-listing", itoa(l.ID))
	require.Contains(t, out, "guest: Hello")

	c.ok("read", "-with", itoa(owner.ID), "-listing", itoa(l.ID))
}

func Test_dataURIs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.JPG")
	raw := filepath.Join(dir, "noext")
	_ = os.WriteFile(jpg, []byte{0xff, 0xd8, 0xff}, 0o600)
	_ = os.WriteFile(raw, []byte("GIF89a...."), 0o600)

	got, err := dataURIs(jpg + ", https://example.com/x.png ," + raw)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, strings.HasPrefix(got[0], "data:image/jpeg;base64,"), got[0])
	require.Equal(t, "https://example.com/x.png", got[1])
	require.True(t, strings.HasPrefix(got[2], "data:image/gif;base64,"), got[2])

	_, err = dataURIs(filepath.Join(dir, "missing.png"))
	require.Error(t, err)

	got, err = dataURIs("")
	require.NoError(t, err)
	require.Nil(t, got)
}

func Test_readAll_File_And_Stdin(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "f.txt")
	_ = os.WriteFile(tmp, []byte("hello"), 0o600)
	b, err := readAll(tmp)
	if err != nil || string(b) != "hello" {
		t.Fatalf("readAll(file): %q %v", b, err)
	}

	r, w, _ := os.Pipe()
	old := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = old }()
	go func() { _, _ = io.WriteString(w, "from-stdin"); _ = w.Close() }()
	b, err = readAll("-")
	if err != nil || string(b) != "from-stdin" {
		t.Fatalf("readAll(stdin): %q %v", b, err)
	}
}

func Test_printJSON_WritesPretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]any{"a": 1}))

	var m map[string]any
	if json.Unmarshal(buf.Bytes(), &m) != nil || m["a"] != float64(1) {
		t.Fatalf("printJSON produced invalid json: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Fatalf("printJSON should indent")
	}
}

func Test_tsString(t *testing.T) {
	t.Parallel()

	require.Empty(t, tsString(model.Time{}))
	ts, err := model.ParseTime("2025-03-04T05:06:07")
	require.NoError(t, err)
	require.Equal(t, "2025-03-04T05:06:07Z", tsString(ts))
	require.Equal(t, "2025-03-04", dateString(ts))
}
