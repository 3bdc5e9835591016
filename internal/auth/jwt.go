package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/models"
)

const issuer = "bikers-api"

var (
	// ErrTokenExpired means the token was well formed and correctly signed
	// but is past its expiry. Clients should re-authenticate.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers everything else: bad signature, wrong
	// algorithm, malformed structure, unknown role.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload inside every token: who the caller is, what role
// they hold and which company they act for.
//
// CompanyID is nil for a superadmin that is not impersonating a company.
// For a superadmin it may carry any company (impersonation); for every
// other role it always equals the user's stored company.
type Claims struct {
	UserID       uuid.UUID  `json:"user_id"`
	Role         string     `json:"role"`
	CompanyID    *uuid.UUID `json:"company_id"`
	Impersonated bool       `json:"impersonated,omitempty"`
	jwt.RegisteredClaims
}

// ParsedRole returns the claim's role as a models.Role.
func (c *Claims) ParsedRole() (models.Role, error) {
	return models.ParseRole(c.Role)
}

// Issuer signs tokens with a shared HMAC secret (HS256).
//
// One process both issues and verifies tokens, so a symmetric key from
// JWT_SECRET is enough. If a second service ever needed to verify without
// issuing, this would move to RS256 so only the API holds the private key.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the default lifetime of tokens minted by Generate.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Generate mints a token for userID with the default TTL.
func (i *Issuer) Generate(userID uuid.UUID, role models.Role, companyID *uuid.UUID) (string, error) {
	return i.GenerateWithTTL(userID, role, companyID, false, i.ttl)
}

// GenerateWithTTL mints a token with an explicit lifetime. impersonated marks
// superadmin tokens scoped to a company they do not belong to.
func (i *Issuer) GenerateWithTTL(userID uuid.UUID, role models.Role, companyID *uuid.UUID, impersonated bool, ttl time.Duration) (string, error) {
	now := i.now()

	claims := Claims{
		UserID:       userID,
		Role:         role.String(),
		CompanyID:    companyID,
		Impersonated: impersonated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
			// Past ExpiresAt, Parse returns ErrTokenExpired and the
			// middleware answers TOKEN_EXPIRED.
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// IssuedAt tells whether a token predates a password change.
			IssuedAt: jwt.NewNumericDate(now),
			// Parse rejects tokens minted by anything else.
			Issuer: issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Parse verifies signature, algorithm and expiry and returns the claims.
//
// The returned error wraps ErrTokenExpired or ErrTokenInvalid so callers
// can tell "log in again" apart from "this token was tampered with".
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			// Runs before the signature is checked. A token claiming "none"
			// or an RSA algorithm must never be verified with the HMAC
			// secret as if it were a public key.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithIssuer(issuer),
		// Issuer.now is swapped in tests to mint already-expired tokens.
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if _, err := claims.ParsedRole(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return claims, nil
}

// Identity is the verified caller, resolved from token claims.
type Identity struct {
	UserID       uuid.UUID
	Role         models.Role
	CompanyID    *uuid.UUID
	Impersonated bool
}

func (i Identity) IsSuperadmin() bool {
	return i.Role == models.RoleSuperadmin
}

// Identity converts verified claims into an Identity.
func (c *Claims) Identity() (Identity, error) {
	role, err := c.ParsedRole()
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:       c.UserID,
		Role:         role,
		CompanyID:    c.CompanyID,
		Impersonated: c.Impersonated,
	}, nil
}
