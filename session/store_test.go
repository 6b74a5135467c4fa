package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/identity"
)

func TestKeysLayout(t *testing.T) {
	k := Keys(identity.DomainVendor)
	assert.Equal(t, "vendorToken", k.Token)
	assert.Equal(t, "vendorRefreshToken", k.RefreshToken)
	assert.Equal(t, "vendor", k.Principal)
	assert.Equal(t, []string{"vendorToken", "vendorRefreshToken", "vendor"}, k.All())
}

func TestTokenStoreRoundTripMemory(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(NewMemoryBackend())
	cred := vendorCredential(tokenExpiring(t, time.Now().Add(time.Hour)))

	require.NoError(t, store.Set(ctx, cred))

	got, err := store.Get(ctx, identity.DomainVendor)
	require.NoError(t, err)
	assert.Equal(t, cred, *got)

	_, err = store.Get(ctx, identity.DomainAdmin)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestTokenStoreRoundTripRedis(t *testing.T) {
	ctx := context.Background()
	store, rdb, _ := newRedisTokenStore(t, "portal")
	cred := vendorCredential(tokenExpiring(t, time.Now().Add(time.Hour)))

	require.NoError(t, store.Set(ctx, cred))

	raw, err := rdb.Get(ctx, "portal:vendorToken").Result()
	require.NoError(t, err)
	assert.Equal(t, cred.Token, raw)
	principal, err := rdb.Get(ctx, "portal:vendor").Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"v-1","businessName":"Stagecraft"}`, principal)

	got, err := store.Get(ctx, identity.DomainVendor)
	require.NoError(t, err)
	assert.Equal(t, cred, *got)
}

func TestTokenStoreSetRejectsInvalidCredential(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewTokenStore(backend)

	err := store.Set(ctx, identity.Credential{Domain: identity.DomainUser, Token: "t", Principal: identity.User{}})
	assert.ErrorIs(t, err, identity.ErrPrincipalMissingID)

	err = store.Set(ctx, identity.Credential{Domain: identity.DomainUser, Token: "t", Principal: identity.Admin{ID: "a"}})
	assert.ErrorIs(t, err, identity.ErrPrincipalDomainMismatch)

	err = store.Set(ctx, identity.Credential{Domain: identity.DomainUser, Principal: identity.User{ID: "u"}})
	assert.ErrorIs(t, err, ErrCredentialsRejected)

	assert.Equal(t, 0, backend.Len())
}

func TestTokenStoreGetCorruptPrincipal(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewTokenStore(backend)

	require.NoError(t, backend.Save(ctx, map[string]string{
		"userToken": tokenExpiring(t, time.Now().Add(time.Hour)),
		"user":      "{not json",
	}))
	_, err := store.Get(ctx, identity.DomainUser)
	assert.ErrorIs(t, err, ErrCredentialCorrupt)

	require.NoError(t, backend.Save(ctx, map[string]string{"user": `{"name":"no id"}`}))
	_, err = store.Get(ctx, identity.DomainUser)
	assert.ErrorIs(t, err, ErrCredentialCorrupt)
	assert.ErrorIs(t, err, identity.ErrPrincipalMissingID)
}

func TestTokenStoreGetIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewTokenStore(backend)

	require.NoError(t, backend.Save(ctx, map[string]string{"adminToken": "x.y.z"}))
	_, err := store.Get(ctx, identity.DomainAdmin)
	assert.ErrorIs(t, err, ErrCredentialCorrupt)

	rec, err := store.Raw(ctx, identity.DomainAdmin)
	require.NoError(t, err)
	assert.False(t, rec.Empty())
	assert.False(t, rec.Complete())
}

func TestRedisBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newRedisTokenStore(t, "")
	mr.Close()

	_, err := store.Get(ctx, identity.DomainUser)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, store.Clear(ctx, identity.DomainUser), ErrBackendUnavailable)
}

func TestTokenStoreRejectsUnknownDomain(t *testing.T) {
	store := NewTokenStore(NewMemoryBackend())
	_, err := store.Get(context.Background(), identity.Domain("tenant"))
	assert.ErrorIs(t, err, identity.ErrUnknownDomain)
	assert.ErrorIs(t, store.Clear(context.Background(), identity.Domain("tenant")), identity.ErrUnknownDomain)
}
