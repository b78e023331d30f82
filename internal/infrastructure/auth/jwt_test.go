package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
)

func newService(now time.Time) *JWTService {
	s := NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "bakery-backend"})
	s.now = func() time.Time { return now }
	return s
}

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newService(now)

	raw, err := s.Issue(IssueInput{
		UserID:   "u-1",
		Name:     "Maha",
		Role:     order.RoleBranch,
		BranchID: "br-1",
		Locale:   order.LocaleAr,
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	claims, err := s.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "branch", claims.Role)
	assert.Equal(t, "br-1", claims.BranchID)
	assert.Equal(t, "ar", claims.Locale)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, 45*time.Minute, claims.TTL(now.Add(15*time.Minute)))
	assert.Zero(t, claims.TTL(now.Add(2*time.Hour)))
}

func TestParse_Errors(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newService(now)

	sign := func(c *Claims, secret string) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		require.NoError(t, err)
		return raw
	}
	base := func() *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "bakery-backend",
				Subject:   "u-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Role: "production",
		}
	}

	tests := []struct {
		name   string
		token  func() string
		expect error
	}{
		{"garbage", func() string { return "not.a.token" }, ErrInvalidToken},
		{"wrong secret", func() string { return sign(base(), "other") }, ErrInvalidToken},
		{"expired", func() string {
			c := base()
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
			return sign(c, "test-secret")
		}, ErrExpiredToken},
		{"not yet valid", func() string {
			c := base()
			c.NotBefore = jwt.NewNumericDate(now.Add(time.Minute))
			return sign(c, "test-secret")
		}, ErrTokenNotYetValid},
		{"foreign issuer", func() string {
			c := base()
			c.Issuer = "someone-else"
			return sign(c, "test-secret")
		}, ErrInvalidClaims},
		{"no expiry", func() string {
			c := base()
			c.ExpiresAt = nil
			return sign(c, "test-secret")
		}, ErrInvalidClaims},
		{"missing subject", func() string {
			c := base()
			c.Subject = ""
			return sign(c, "test-secret")
		}, ErrMissingUserID},
		{"unknown role", func() string {
			c := base()
			c.Role = "cashier"
			return sign(c, "test-secret")
		}, ErrUnknownRole},
		{"chef without department", func() string {
			c := base()
			c.Role = "chef"
			return sign(c, "test-secret")
		}, ErrMissingScope},
		{"hs512", func() string {
			raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, base()).SignedString([]byte("test-secret"))
			require.NoError(t, err)
			return raw
		}, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(tt.token())
			assert.ErrorIs(t, err, tt.expect)
		})
	}
}

func TestIssue_RejectsInvalidClaims(t *testing.T) {
	s := newService(time.Now())
	_, err := s.Issue(IssueInput{UserID: "u-1", Role: order.RoleBranch, TTL: time.Hour})
	assert.ErrorIs(t, err, ErrMissingScope)
}
