package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/azura/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *domain.User {
	return &domain.User{ID: "u1", Email: "ada@example.com", Role: domain.RoleAdmin}
}

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	token, err := tokens.Issue(testUser())
	require.NoError(t, err)

	p, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: "u1", Email: "ada@example.com", Role: domain.RoleAdmin}, p)
	assert.True(t, p.IsAdmin())
}

func TestParse_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := tokens.Issue(testUser())
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewTokens("secret", time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "u1", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("secret", time.Hour).Parse(unsigned)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	token, err := tokens.Issue(testUser())
	require.NoError(t, err)

	var got Principal
	h := Authenticate(tokens)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = PrincipalFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"valid", "Bearer " + token, true},
		{"missing", "", false},
		{"garbage", "Bearer nope", false},
		{"wrong scheme", "Basic " + token, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Principal{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got.Authenticated())
		})
	}
}
