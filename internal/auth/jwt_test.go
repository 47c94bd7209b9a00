package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	tok, err := SignJWT("u-1", "secret", time.Hour)
	require.NoError(t, err)

	uid, err := ParseJWT(tok, "secret")
	require.NoError(t, err)
	require.Equal(t, "u-1", uid)
}

func TestParse_Rejects(t *testing.T) {
	good, err := SignJWT("u-1", "secret", time.Hour)
	require.NoError(t, err)
	expired, err := SignJWT("u-1", "secret", -time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": "u-1", "iss": issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct{ token, secret string }{
		"empty":        {"", "secret"},
		"wrong secret": {good, "other"},
		"expired":      {expired, "secret"},
		"alg none":     {none, "secret"},
		"garbage":      {"abc.def.ghi", "secret"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJWT(tc.token, tc.secret)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer  abc "))
	require.Empty(t, BearerToken("Basic abc"))
	require.Empty(t, BearerToken(""))
}
