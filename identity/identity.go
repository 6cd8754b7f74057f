// Package identity is the OAuth provider boundary: it exchanges an
// authorization code with a third-party identity provider and yields a
// verified external identity plus email. The handshake itself is a black box
// to the token core; completion hands the resolved user to
// auth.Service.IssueInitialTokens.
package identity

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/veraxlabs/go-access-server/internal/config"
)

// ExternalIdentity is the verified result of a provider handshake.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier completes OIDC code exchanges against a single configured
// provider.
type Verifier struct {
	provider     *oidc.Provider
	oauth2Config *oauth2.Config
	oidcVerifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider and prepares the exchange config.
func NewVerifier(ctx context.Context, cfg config.SecurityConfig) (*Verifier, error) {
	issuerURL := cfg.GetOidcIssuerURL()
	if issuerURL == "" {
		return nil, errors.New("[identity.NewVerifier] OIDC issuer URL is not configured")
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[identity.NewVerifier] provider discovery")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GetOidcClientID(),
		ClientSecret: cfg.GetOidcClientSecret(),
		RedirectURL:  cfg.GetOidcRedirectURL(),
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &Verifier{
		provider:     provider,
		oauth2Config: oauth2Config,
		oidcVerifier: provider.Verifier(&oidc.Config{ClientID: oauth2Config.ClientID}),
	}, nil
}

// AuthCodeURL builds the provider redirect for the given state and nonce.
func (v *Verifier) AuthCodeURL(state, nonce string) string {
	return v.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange swaps the authorization code for tokens, verifies the ID token
// signature and nonce, and returns the external identity.
func (v *Verifier) Exchange(ctx context.Context, code, expectedNonce string) (*ExternalIdentity, error) {
	oauth2Token, err := v.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[identity.Exchange] token exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("[identity.Exchange] no ID token in response")
	}

	idToken, err := v.oidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[identity.Exchange] ID token verification")
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[identity.Exchange] claims extraction")
	}

	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return nil, errors.New("[identity.Exchange] nonce mismatch")
	}
	if claims.Email == "" {
		return nil, errors.New("[identity.Exchange] provider returned no email")
	}

	return &ExternalIdentity{
		Subject: claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}
