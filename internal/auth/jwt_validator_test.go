package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func buildShiftToken(t *testing.T, issuedAt, notBefore, expiry time.Time, issuer string) jwt.Token {
	t.Helper()
	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{"register"}).
		Subject("cashier-1").
		IssuedAt(issuedAt).
		NotBefore(notBefore).
		Expiration(expiry).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return token
}

func TestTokenValidatorAcceptsCurrentToken(t *testing.T) {
	now := time.Now()
	token := buildShiftToken(t, now, now, now.Add(time.Minute), "laundry-pos")

	validator := TokenValidator{Issuer: "laundry-pos", Audience: "register", ClockSkew: time.Second, Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTokenValidatorIssuerMismatch(t *testing.T) {
	now := time.Now()
	token := buildShiftToken(t, now, now, now.Add(time.Minute), "someone-else")

	validator := TokenValidator{Issuer: "laundry-pos", Audience: "register", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestTokenValidatorExpiredToken(t *testing.T) {
	now := time.Now()
	token := buildShiftToken(t, now.Add(-2*time.Hour), now.Add(-2*time.Hour), now.Add(-time.Minute), "laundry-pos")

	validator := TokenValidator{Issuer: "laundry-pos", Audience: "register", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected expiration error")
	}
}

func TestTokenValidatorNotYetValid(t *testing.T) {
	now := time.Now()
	token := buildShiftToken(t, now, now.Add(5*time.Minute), now.Add(10*time.Minute), "laundry-pos")

	validator := TokenValidator{Issuer: "laundry-pos", Audience: "register", Algorithm: jwa.HS256, ClockSkew: time.Second}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected not-before validation error")
	}
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	token := buildShiftToken(t, now, now, now.Add(time.Minute), "laundry-pos")

	validator := TokenValidator{Issuer: "laundry-pos", Audience: "register", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.RS256, now); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}
