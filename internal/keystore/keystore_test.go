package keystore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKeystore_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := New(path, "correct horse battery staple")
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}

	if _, err := store.Get("deepl_api_key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before set, got %v", err)
	}

	if err := store.Set("deepl_api_key", "abc123:fx"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get("deepl_api_key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "abc123:fx" {
		t.Fatalf("unexpected secret: %q", got)
	}

	if err := store.Delete("deepl_api_key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("deepl_api_key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeystore_SecretsNotStoredInPlaintext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := New(path, "passphrase")
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}
	if err := store.Set("deepl_api_key", "super-secret-value"); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read keystore file: %v", err)
	}
	if strings.Contains(string(raw), "super-secret-value") {
		t.Fatalf("secret appears in plaintext on disk")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat keystore file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("unexpected file permissions: %o", perm)
	}
}

func TestKeystore_WrongPassphrase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := New(path, "right")
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}
	if err := store.Set("deepl_api_key", "value"); err != nil {
		t.Fatalf("set: %v", err)
	}

	wrong, err := New(path, "wrong")
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}
	if _, err := wrong.Get("deepl_api_key"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestKeystore_DeleteAbsentIsNoop(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := New(path, "passphrase")
	if err != nil {
		t.Fatalf("new keystore: %v", err)
	}
	if err := store.Delete("never-set"); err != nil {
		t.Fatalf("deleting an absent secret should be a no-op, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no-op delete should not create the file")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "passphrase"); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := New("/tmp/x", ""); err == nil {
		t.Fatalf("expected error for empty passphrase")
	}
}
