package auth

import (
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("geheim123")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "geheim123" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword(hash, "geheim123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "falsch") {
		t.Error("wrong password accepted")
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)

	token, err := store.Create("admin")
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	user, ok := store.Validate(token)
	if !ok || user != "admin" {
		t.Fatalf("validate: %q, %v", user, ok)
	}

	store.Destroy(token)
	if _, ok := store.Validate(token); ok {
		t.Error("destroyed session still valid")
	}
	if _, ok := store.Validate("nope"); ok {
		t.Error("unknown token accepted")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	token, err := store.Create("admin")
	if err != nil {
		t.Fatal(err)
	}

	current = current.Add(59 * time.Minute)
	if _, ok := store.Validate(token); !ok {
		t.Error("session expired too early")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := store.Validate(token); ok {
		t.Error("expired session still valid")
	}
}

func TestSessionTokensUnique(t *testing.T) {
	store := NewSessionStore(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := store.Create("admin")
		if err != nil {
			t.Fatal(err)
		}
		if seen[token] {
			t.Fatal("duplicate session token")
		}
		seen[token] = true
	}
}
