package service

import (
	"testing"
	"time"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/config"
)

func TestUserTokenRoundTrip(t *testing.T) {
	svc := NewUserTokenService(config.JWTConfig{SecretKey: "s3cret", Issuer: "railbook", ExpireHours: 2}, clock.Real())
	token, expiresAt, err := svc.GenerateUserJWT("u-100", 0)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if time.Until(expiresAt) <= time.Hour {
		t.Fatalf("expire hours should follow config, got %v", expiresAt)
	}
	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID() != "u-100" || claims.Issuer != "railbook" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseUserJWT("other-secret", token); err == nil {
		t.Fatalf("token signed with another secret should be rejected")
	}
}

func TestUserTokenRejectsExpired(t *testing.T) {
	fake := clock.NewFake(time.Now().Add(-48 * time.Hour))
	svc := NewUserTokenService(config.JWTConfig{SecretKey: "s3cret"}, fake)
	token, _, err := svc.GenerateUserJWT("u-100", 1)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := ParseUserJWT("s3cret", token); err == nil {
		t.Fatalf("expired token should be rejected")
	}
}

func TestUserTokenRequiresSecretAndUser(t *testing.T) {
	if _, _, err := NewUserTokenService(config.JWTConfig{}, nil).GenerateUserJWT("u-1", 1); err == nil {
		t.Fatalf("missing secret should fail")
	}
	if _, _, err := NewUserTokenService(config.JWTConfig{SecretKey: "x"}, nil).GenerateUserJWT(" ", 1); err == nil {
		t.Fatalf("missing user id should fail")
	}
}
