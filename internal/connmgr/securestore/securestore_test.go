package securestore

import (
	"path/filepath"
	"testing"
)

func TestStore_SetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	store := New(path, []byte("correct horse battery staple"))

	id := "11111111-1111-1111-1111-111111111111"
	if err := store.Set(PasswordKey(id), "hunter2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(PasswordKey(id))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("expected hunter2, got %q", got)
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	passphrase := []byte("another passphrase entirely")

	first := New(path, passphrase)
	id := "22222222-2222-2222-2222-222222222222"
	if err := first.Set(SSHPassphraseKey(id), "ssh-secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second := New(path, passphrase)
	got, err := second.Get(SSHPassphraseKey(id))
	if err != nil {
		t.Fatalf("Get from fresh Store: %v", err)
	}
	if got != "ssh-secret" {
		t.Errorf("expected ssh-secret, got %q", got)
	}
}

func TestStore_WrongPassphraseFailsToDecrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	first := New(path, []byte("right passphrase"))
	if err := first.Set(PasswordKey("x"), "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second := New(path, []byte("wrong passphrase"))
	if _, err := second.Get(PasswordKey("x")); err == nil {
		t.Fatal("expected decryption to fail with the wrong passphrase")
	}
}

func TestStore_GetMissingKeyReturnsErrNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	store := New(path, []byte("passphrase"))
	if _, err := store.Get(PasswordKey("missing")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	store := New(path, []byte("passphrase"))
	key := PasswordKey("y")
	if err := store.Set(key, "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(key); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
