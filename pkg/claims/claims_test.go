package claims_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"wafl/pkg/claims"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	token, err := claims.Issue(priv, "operator", "module-1", map[string]interface{}{"ports": "reverse"}, claims.IssueOptions{ExpiresInDays: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := claims.Verify(token, pub)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Subject != "module-1" {
		t.Fatalf("expected subject module-1, got %s", got.Subject)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	otherPub, _, _ := ed25519.GenerateKey(rand.Reader)

	token, err := claims.Issue(priv, "operator", "module-1", nil, claims.IssueOptions{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := claims.Verify(token, otherPub); err == nil {
		t.Fatalf("expected verification failure with mismatched key")
	}
}

func TestIssueWithoutExpiry(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	token, err := claims.Issue(priv, "operator", "module-1", nil, claims.IssueOptions{ExpiresInDays: 0})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := claims.Verify(token, pub)
	if err != nil {
		t.Fatalf("unexpected verify failure: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Fatalf("expected no expiry, got %v", got.ExpiresAt)
	}
}

func TestKeyTypeGating(t *testing.T) {
	if !claims.CanSign(claims.Operator, claims.Account) {
		t.Fatalf("expected operator to be able to sign an account")
	}
	if claims.CanSign(claims.Module, claims.Account) {
		t.Fatalf("module must not be able to sign an account")
	}
}
