package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	sec := "secret123"
	sid := "abc"
	now := time.Now().Truncate(time.Second)
	exp := now.Add(5 * time.Minute)

	tok, err := GenerateClientToken(sec, sid, now, exp)
	if err != nil {
		t.Fatalf("gen: %v", err)
	}

	gotSID, gotExp, err := ValidateClientToken(sec, tok, sid, now, time.Minute)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotSID != sid || !gotExp.Equal(exp) {
		t.Fatalf("mismatch: %s/%v", gotSID, gotExp)
	}
}

func TestBadSignature(t *testing.T) {
	now := time.Now()
	tok, _ := GenerateClientToken("secret123", "abc", now, now.Add(5*time.Minute))

	_, _, err := ValidateClientToken("other-secret", tok, "abc", now, time.Minute)
	if !errors.Is(err, ErrTokenSig) {
		t.Fatalf("expected ErrTokenSig, got %v", err)
	}
}

func TestExpiredBeyondSkew(t *testing.T) {
	now := time.Now()
	tok, _ := GenerateClientToken("s", "abc", now, now.Add(time.Minute))

	if _, _, err := ValidateClientToken("s", tok, "abc", now.Add(90*time.Second), time.Minute); err != nil {
		t.Fatalf("inside skew should validate: %v", err)
	}
	if _, _, err := ValidateClientToken("s", tok, "abc", now.Add(3*time.Minute), time.Minute); !errors.Is(err, ErrTokenExp) {
		t.Fatalf("expected ErrTokenExp, got %v", err)
	}
}

func TestSessionMismatchAndFormat(t *testing.T) {
	now := time.Now()
	tok, _ := GenerateClientToken("s", "abc", now, now.Add(time.Minute))

	if _, _, err := ValidateClientToken("s", tok, "xyz", now, 0); !errors.Is(err, ErrTokenSID) {
		t.Fatalf("expected ErrTokenSID, got %v", err)
	}
	if _, _, err := ValidateClientToken("s", "not-a-token", "abc", now, 0); !errors.Is(err, ErrTokenFormat) {
		t.Fatalf("expected ErrTokenFormat, got %v", err)
	}
	if _, err := GenerateClientToken("", "abc", now, now.Add(time.Minute)); err == nil {
		t.Fatalf("empty secret must be refused")
	}
}
