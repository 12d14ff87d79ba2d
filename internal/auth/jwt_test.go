package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParseClaims(t *testing.T) {
	valid, err := MintToken("user-1", "a@b.co", "secret", time.Hour)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	expired, err := MintToken("user-1", "a@b.co", "secret", -time.Hour)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	noSubject, err := MintToken("", "a@b.co", "secret", time.Hour)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "verified", token: valid, secret: "secret"},
		{name: "unverified decode", token: valid, secret: ""},
		{name: "wrong secret", token: valid, secret: "other", wantErr: jwt.ErrTokenSignatureInvalid},
		{name: "expired verified", token: expired, secret: "secret", wantErr: jwt.ErrTokenExpired},
		{name: "expired unverified", token: expired, secret: "", wantErr: jwt.ErrTokenExpired},
		{name: "no subject", token: noSubject, secret: "secret", wantErr: ErrMissingSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseClaims(tt.token, tt.secret)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if claims.UserID() != "user-1" {
				t.Errorf("expected subject user-1, got %q", claims.UserID())
			}
			if claims.Email != "a@b.co" {
				t.Errorf("expected email a@b.co, got %q", claims.Email)
			}
		})
	}
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	if _, err := ParseClaims("not-a-token", ""); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
