// Package seal encrypts small local secrets (the persisted session token) at rest.
//
// A random master key lives in a 0600 key file next to the sealed data. Each entry
// is sealed with XChaCha20-Poly1305 under an HKDF-SHA256 subkey bound to the entry name,
// and the name is also authenticated as AAD, so a blob cannot be moved between entries.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeyLen is the master and subkey length.
const KeyLen = chacha20poly1305.KeySize

// ErrCorrupt is returned when a blob is truncated or fails authentication.
var ErrCorrupt = errors.New("seal: corrupt or foreign blob")

// Rand returns n cryptographically random bytes.
func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// LoadOrCreateKey reads the master key at path, creating it (and its directory) if missing.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(key) != KeyLen {
			return nil, fmt.Errorf("seal: key file %s: want %d bytes, got %d", path, KeyLen, len(key))
		}
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("seal: read key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("seal: key dir: %w", err)
	}
	key, err = Rand(KeyLen)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		// lost a creation race; use the winner's key
		return LoadOrCreateKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("seal: create key: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seal: write key: %w", err)
	}
	return key, f.Close()
}

// DeriveKey derives the subkey for entry name via HKDF-SHA256.
func DeriveKey(master []byte, name string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(name))
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext for entry name. Output is nonce||ciphertext.
func Seal(master []byte, name string, plaintext []byte) ([]byte, error) {
	key, err := DeriveKey(master, name)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := Rand(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(name)), nil
}

// Open decrypts a blob produced by Seal for the same entry name.
func Open(master []byte, name string, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, ErrCorrupt
	}
	key, err := DeriveKey(master, name)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, ct := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return nil, ErrCorrupt
	}
	return pt, nil
}
