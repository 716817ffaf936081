package main

import (
	"bytes"
	"strings"
	"testing"

	pkgAuth "github.com/polkiloo/salesrollup/internal/pkg/auth"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestRunIssuesToken(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-tenant", "store-1"}, lookupFrom(map[string]string{"TOKEN_SECRET": "secret"}), &out, &errOut)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut.String())
	}

	tenant, err := pkgAuth.NewHMACStrategy("secret", pkgAuth.Options{}).ParseToken(strings.TrimSpace(out.String()))
	if err != nil || tenant != "store-1" {
		t.Fatalf("expected token for store-1, got %q err=%v", tenant, err)
	}
}

func TestRunRequiresSecret(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"-tenant", "store-1"}, lookupFrom(nil), &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRunRejectsEmptyTenant(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, lookupFrom(map[string]string{"TOKEN_SECRET": "secret"}), &out, &errOut); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestRunHashesKey(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"-hash-key", "ingest"}, lookupFrom(nil), &out, &errOut); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut.String())
	}

	verifier := pkgAuth.NewHashedKeyVerifier(strings.TrimSpace(out.String()), pkgAuth.NewBcryptHasher(0))
	if err := verifier.Verify("ingest"); err != nil {
		t.Fatalf("expected hash to verify: %v", err)
	}
}
