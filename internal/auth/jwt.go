// Package auth provides token issuance/verification, password hashing, and
// the authorization middleware for the API.
//
// There is exactly one trust mechanism: an HS256-signed bearer token issued
// by TokenService. Password login, registration, and the GitHub OAuth
// callback all end in the same GenerateAccess call, so every authenticated
// request, browser or API client alike, presents the same kind of credential.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/intentflow/backend/internal/model"
)

// purposeDownload marks tokens that only authorize fetching a release file.
// Access tokens carry no purpose claim.
const purposeDownload = "download"

// Principal is the authenticated identity resolved from a verified access
// token. It is the sole trust anchor for authorization decisions; handlers
// never re-derive the identity from request body fields.
type Principal struct {
	UserID string
	Role   model.Role
}

// IsAdmin reports whether the principal may call admin endpoints.
func (p *Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// DownloadGrant is the decoded payload of a verified download token.
type DownloadGrant struct {
	UserID   string
	Platform string
}

// TokenService issues and verifies the signed tokens used by the API.
//
// It holds the HMAC secret used to sign and verify. The same secret must be
// used for both operations; it is required startup configuration (see the
// config package) rather than a hardcoded fallback.
type TokenService struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	downloadTTL time.Duration
}

// NewTokenService creates a TokenService. The secret should be at least
// 32 bytes of random data in production; anything under 16 is rejected.
func NewTokenService(secret, issuer string, accessTTL, downloadTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{
		secret:      []byte(secret),
		issuer:      issuer,
		accessTTL:   accessTTL,
		downloadTTL: downloadTTL,
	}, nil
}

// claims is the JWT payload. The standard "sub" claim carries the internal
// user ID; role is set on access tokens, platform and purpose on download
// tokens.
type claims struct {
	Role     string `json:"role,omitempty"`
	Platform string `json:"platform,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccess creates a signed access token embedding the user's ID and
// role, valid for the configured access TTL (7 days by default). There is no
// refresh mechanism; after expiry the client must authenticate again.
func (s *TokenService) GenerateAccess(userID string, role model.Role) (string, error) {
	return s.generateAccess(userID, role, s.accessTTL)
}

// GenerateAccessWithTTL creates an access token with a custom lifetime.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateAccessWithTTL(userID string, role model.Role, ttl time.Duration) (string, error) {
	return s.generateAccess(userID, role, ttl)
}

func (s *TokenService) generateAccess(userID string, role model.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}
	return signed, nil
}

// GenerateDownload creates a signed, single-purpose token authorizing one
// platform's release download, valid for the configured download TTL
// (1 hour by default). It is consumed by the /download/file endpoint and is
// never accepted as an access token.
func (s *TokenService) GenerateDownload(userID, platform string) (string, error) {
	now := time.Now()
	c := claims{
		Platform: platform,
		Purpose:  purposeDownload,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.downloadTTL)),
			Issuer:    s.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing download token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies an access token, returning the principal it
// encodes. Any failure (malformed token, bad signature, expiry, wrong
// issuer, wrong purpose) is reported as an error, never a panic.
func (s *TokenService) Validate(tokenStr string) (*Principal, error) {
	c, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	// A download token must never authenticate an API request.
	if c.Purpose != "" {
		return nil, fmt.Errorf("auth: token is not an access token")
	}

	role := model.Role(c.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("auth: token has invalid role %q", c.Role)
	}

	return &Principal{UserID: c.Subject, Role: role}, nil
}

// ValidateDownload parses and verifies a download token.
func (s *TokenService) ValidateDownload(tokenStr string) (*DownloadGrant, error) {
	c, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if c.Purpose != purposeDownload {
		return nil, fmt.Errorf("auth: token is not a download token")
	}
	if c.Platform == "" {
		return nil, fmt.Errorf("auth: download token has no platform")
	}

	return &DownloadGrant{UserID: c.Subject, Platform: c.Platform}, nil
}

// parse performs the cryptographic and temporal checks shared by both token
// kinds. jwt.WithValidMethods pins the algorithm to HS256 so a token signed
// with "none" or an asymmetric scheme is rejected outright.
func (s *TokenService) parse(tokenStr string) (*claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}
