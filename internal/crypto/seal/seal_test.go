package seal

import (
	"bytes"
	"crypto/subtle"
	"os"
	"path/filepath"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestLoadOrCreateKey_CreatesOnceWithPerms(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "key")

	k1, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(k1) != KeyLen {
		t.Fatalf("len=%d", len(k1))
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("perm=%v, want 0600", st.Mode().Perm())
	}

	k2, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("key changed between loads")
	}
}

func TestLoadOrCreateKey_RejectsShortKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "key")
	_ = os.WriteFile(path, []byte("short"), 0o600)
	if _, err := LoadOrCreateKey(path); err == nil {
		t.Fatalf("want error for short key file")
	}
}

func TestDeriveKey_DiffPerName(t *testing.T) {
	t.Parallel()
	master, _ := Rand(KeyLen)
	ka, _ := DeriveKey(master, "auth_token")
	kb, _ := DeriveKey(master, "other")
	if subtle.ConstantTimeCompare(ka, kb) != 0 {
		t.Fatalf("keys for different names must differ")
	}
	ka2, _ := DeriveKey(master, "auth_token")
	if subtle.ConstantTimeCompare(ka, ka2) != 1 {
		t.Fatalf("DeriveKey must be deterministic")
	}
}

func TestSealOpen_RoundTripAndTamper(t *testing.T) {
	t.Parallel()
	master, _ := Rand(KeyLen)
	pt := []byte("eyJhbGciOiJIUzI1NiJ9.payload.sig")

	blob, err := Seal(master, "auth_token", pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(blob, pt) {
		t.Fatalf("plaintext visible in blob")
	}
	got, err := Open(master, "auth_token", blob)
	if err != nil || !bytes.Equal(got, pt) {
		t.Fatalf("Open: %q %v", got, err)
	}

	if _, err := Open(master, "other", blob); err != ErrCorrupt {
		t.Fatalf("wrong name: want ErrCorrupt, got %v", err)
	}
	other, _ := Rand(KeyLen)
	if _, err := Open(other, "auth_token", blob); err != ErrCorrupt {
		t.Fatalf("wrong key: want ErrCorrupt, got %v", err)
	}
	bad := append([]byte(nil), blob...)
	bad[len(bad)-1] ^= 0xff
	if _, err := Open(master, "auth_token", bad); err != ErrCorrupt {
		t.Fatalf("tampered: want ErrCorrupt, got %v", err)
	}
	if _, err := Open(master, "auth_token", blob[:5]); err != ErrCorrupt {
		t.Fatalf("short: want ErrCorrupt, got %v", err)
	}
}
