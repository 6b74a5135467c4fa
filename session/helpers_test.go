package session

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/jwt"
)

func tokenExpiring(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub": "subject",
		"exp": exp.Unix(),
	}).SignedString([]byte("session-test"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func testValidator(t *testing.T, now func() time.Time) *jwt.Validator {
	t.Helper()
	v, err := jwt.NewValidator(jwt.Config{Now: now})
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return v
}

func newRedisTokenStore(t *testing.T, prefix string) (*TokenStore, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewTokenStore(NewRedisBackend(rdb, prefix, 0)), rdb, mr
}

func vendorCredential(token string) identity.Credential {
	return identity.Credential{
		Domain:       identity.DomainVendor,
		Token:        token,
		RefreshToken: "refresh-v1",
		Principal:    identity.Vendor{ID: "v-1", BusinessName: "Stagecraft"},
	}
}
