package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
	"github.com/veraxlabs/go-access-server/users"
)

// Class tags the purpose a token was minted for. The tag is carried inside
// the signed claim set and checked on every verification, so a token minted
// for one purpose can never be replayed as the other even if the two signing
// secrets were ever to collide.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

// Claims is the signed claim set for both token classes. Access tokens carry
// the email and role snapshot; refresh tokens carry the store token ID.
type Claims struct {
	Class   Class    `json:"class"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	TokenID string   `json:"rtid,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens. Each class has its own
// signer with its own secret, so a compromised access secret cannot mint
// refresh tokens and vice versa. Codec methods are pure functions of their
// input plus the static secrets and are safe for concurrent use.
type Codec struct {
	accessSigner  Signer
	refreshSigner Signer
	issuer        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

type CodecOption func(*Codec)

func WithTokenExpiry(accessExpiry, refreshExpiry time.Duration) CodecOption {
	return func(c *Codec) {
		c.accessExpiry = accessExpiry
		c.refreshExpiry = refreshExpiry
	}
}

func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// NewCodec creates a codec from the two class secrets. The secrets must be
// non-empty and disjoint.
func NewCodec(accessSecret, refreshSecret string, options ...CodecOption) (*Codec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("[NewCodec] both token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("[NewCodec] access and refresh secrets must differ")
	}

	c := &Codec{
		accessSigner:  NewHMACSigner(accessSecret),
		refreshSigner: NewHMACSigner(refreshSecret),
	}

	for _, opt := range options {
		opt(c)
	}

	if c.accessExpiry == 0 {
		c.accessExpiry = 15 * time.Minute
	}
	if c.refreshExpiry == 0 {
		c.refreshExpiry = 168 * time.Hour
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c, nil
}

// RefreshExpiry is the TTL refresh tokens are minted with; the store entry
// for a refresh token uses the same value.
func (c *Codec) RefreshExpiry() time.Duration {
	return c.refreshExpiry
}

// AccessExpiry is the TTL access tokens are minted with.
func (c *Codec) AccessExpiry() time.Duration {
	return c.accessExpiry
}

// IssueAccess encodes the user's identity and current role snapshot into a
// short-lived access token. Access tokens are never persisted and never
// individually revocable; their only mitigation is the short expiry.
func (c *Codec) IssueAccess(user *users.User) (string, error) {
	now := c.nowFunc()
	claims := Claims{
		Class: ClassAccess,
		Email: user.Email,
		Roles: user.EffectiveRoles(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessExpiry)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := c.accessSigner.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Codec.IssueAccess Sign")
	}
	return signed, nil
}

// IssueRefresh encodes the user's identity and the store token ID into a
// long-lived refresh token signed with the refresh secret.
func (c *Codec) IssueRefresh(user *users.User, tokenID string) (string, error) {
	if tokenID == "" {
		return "", errors.New("Codec.IssueRefresh tokenID is required")
	}
	now := c.nowFunc()
	claims := Claims{
		Class:   ClassRefresh,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshExpiry)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := c.refreshSigner.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Codec.IssueRefresh Sign")
	}
	return signed, nil
}

// Verify checks signature, expiry, and the class tag. Cross-class
// presentation is reported as ErrWrongTokenClass whether it fails on the
// signature (disjoint secrets) or on the tag, so callers can log it as a
// distinct misuse signal.
func (c *Codec) Verify(raw string, expected Class) (*Claims, error) {
	signer := c.signerFor(expected)
	if signer == nil {
		return nil, errors.Errorf("Codec.Verify unknown token class %q", expected)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, signer.GetVerificationKey,
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		// A structurally valid token of the other class fails the signature
		// check here. Peek at the unverified claims to tell the two apart.
		if c.unverifiedClass(raw) != "" && c.unverifiedClass(raw) != expected {
			return nil, apperrors.ErrWrongTokenClass
		}
		return nil, apperrors.ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, apperrors.ErrTokenMalformed
	}
	if claims.Class != expected {
		return nil, apperrors.ErrWrongTokenClass
	}
	if claims.Subject == "" {
		return nil, apperrors.ErrTokenMalformed
	}
	if expected == ClassRefresh && claims.TokenID == "" {
		return nil, apperrors.ErrTokenMalformed
	}
	return claims, nil
}

func (c *Codec) signerFor(class Class) Signer {
	switch class {
	case ClassAccess:
		return c.accessSigner
	case ClassRefresh:
		return c.refreshSigner
	}
	return nil
}

// unverifiedClass extracts the class tag without verifying the signature.
// Used only to classify rejections, never to accept a token.
func (c *Codec) unverifiedClass(raw string) Class {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}
	return claims.Class
}
