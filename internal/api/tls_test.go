package api

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/sublease/internal/errs"
)

func Test_LoadTLS_Variants(t *testing.T) {
	t.Parallel()

	cfg, err := LoadTLS("", true)
	require.NoError(t, err)
	require.True(t, cfg.InsecureSkipVerify)

	cfg, err = LoadTLS("", false)
	require.NoError(t, err)
	require.Nil(t, cfg, "system roots")

	_, err = LoadTLS(filepath.Join(t.TempDir(), "missing.pem"), false)
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o600))
	_, err = LoadTLS(bad, false)
	require.Error(t, err)
}

func Test_WithTLS_CustomCA(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	ca := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(ca, block, 0o600))

	plain, err := New(srv.URL)
	require.NoError(t, err)
	err = plain.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil)
	require.ErrorIs(t, err, errs.ErrNetwork, "unknown authority")

	cfg, err := LoadTLS(ca, false)
	require.NoError(t, err)
	c, err := New(srv.URL, WithTLS(cfg))
	require.NoError(t, err)
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil))
}
