package token_test

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arboric-proxy/arboric/token"
)

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyMissingHeader(t *testing.T) {
	v := token.NewVerifier([]byte("secret"))
	_, err := v.Verify("")
	require.NotNil(t, err)
	assert.Equal(t, 401, err.Status)
}

func TestVerifyMalformedHeader(t *testing.T) {
	v := token.NewVerifier([]byte("secret"))
	_, err := v.Verify("Token abc.def.ghi")
	require.NotNil(t, err)
	assert.Equal(t, 401, err.Status)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	signed := signToken(t, []byte("right-secret"), jwt.MapClaims{"sub": "1"})
	v := token.NewVerifier([]byte("wrong-secret"))
	_, err := v.Verify("Bearer " + signed)
	require.NotNil(t, err)
	assert.Equal(t, 401, err.Status)
}

func TestVerifySucceedsAndExtractsClaims(t *testing.T) {
	key := []byte("shared-secret")
	signed := signToken(t, key, jwt.MapClaims{"sub": "1", "roles": "user,admin"})
	v := token.NewVerifier(key)
	claims, err := v.Verify("Bearer " + signed)
	require.Nil(t, err)
	assert.Equal(t, "1", claims["sub"])
	assert.Equal(t, "user,admin", claims["roles"])
}

func TestVerifyDoesNotEnforceExpiration(t *testing.T) {
	key := []byte("shared-secret")
	signed := signToken(t, key, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-24 * time.Hour).Unix(),
	})
	v := token.NewVerifier(key)
	_, err := v.Verify("Bearer " + signed)
	assert.Nil(t, err)
}

func TestResolveSigningKeyEncodings(t *testing.T) {
	raw := []byte("topsecret")

	hexSrc := token.Inline{Data: []byte(hex.EncodeToString(raw)), Encoding: token.Hex}
	key, err := token.ResolveSigningKey(hexSrc)
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	b64Src := token.Inline{Data: []byte(base64.StdEncoding.EncodeToString(raw)), Encoding: token.Base64}
	key, err = token.ResolveSigningKey(b64Src)
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	rawSrc := token.Inline{Data: raw, Encoding: token.Raw}
	key, err = token.ResolveSigningKey(rawSrc)
	require.NoError(t, err)
	assert.Equal(t, raw, key)
}

func TestResolveSigningKeyRejectsEmpty(t *testing.T) {
	_, err := token.ResolveSigningKey(token.Inline{Data: nil, Encoding: token.Raw})
	assert.Error(t, err)
}

func TestResolveSigningKeyNilSourceIsNoAuth(t *testing.T) {
	key, err := token.ResolveSigningKey(nil)
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestFromEnvResolves(t *testing.T) {
	t.Setenv("ARBORIC_TEST_KEY", "env-secret")
	key, err := token.ResolveSigningKey(token.FromEnv{Name: "ARBORIC_TEST_KEY", Encoding: token.Raw})
	require.NoError(t, err)
	assert.Equal(t, []byte("env-secret"), key)
}

func TestFromEnvMissingFails(t *testing.T) {
	_, err := token.ResolveSigningKey(token.FromEnv{Name: "ARBORIC_TEST_KEY_MISSING", Encoding: token.Raw})
	assert.Error(t, err)
}
