package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingUserID    = errors.New("missing subject in claims")
	ErrUnknownRole      = errors.New("unknown role in claims")
	ErrMissingScope     = errors.New("branch or chef token without its scope id")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the access token claims issued by the bakery backend. The
// subject is the user id; the same token is forwarded on every API call.
type Claims struct {
	jwt.RegisteredClaims
	Name         string `json:"name,omitempty"`
	Role         string `json:"role"`
	BranchID     string `json:"branch_id,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// Validate checks the dashboard-specific claim invariants.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return ErrMissingUserID
	}
	role := order.Role(c.Role)
	if !role.IsValid() {
		return ErrUnknownRole
	}
	if role == order.RoleBranch && c.BranchID == "" {
		return ErrMissingScope
	}
	if role == order.RoleChef && c.DepartmentID == "" {
		return ErrMissingScope
	}
	return nil
}

// TTL returns the time left before the token expires, zero if already expired.
func (c *Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// JWTService verifies HS256 access tokens shared with the bakery backend.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, now: time.Now}
}

// Parse validates signature, issuer, lifetime and the dashboard claims.
func (s *JWTService) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		// Claims.Validate errors surface here wrapped
		for _, e := range []error{ErrMissingUserID, ErrUnknownRole, ErrMissingScope} {
			if errors.Is(err, e) {
				return nil, e
			}
		}
		return nil, ErrInvalidClaims
	default:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueInput describes a token for local development and tests.
type IssueInput struct {
	UserID       string
	Name         string
	Role         order.Role
	BranchID     string
	DepartmentID string
	Locale       order.Locale
	TTL          time.Duration
}

// Issue signs a token the way the bakery backend does. Production tokens come
// from the backend; this exists for the dev token command and tests.
func (s *JWTService) Issue(in IssueInput) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.TTL)),
		},
		Name:         in.Name,
		Role:         string(in.Role),
		BranchID:     in.BranchID,
		DepartmentID: in.DepartmentID,
		Locale:       string(in.Locale),
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
