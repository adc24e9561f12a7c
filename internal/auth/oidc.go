package auth

import (
	"context"
	"errors"
	"fmt"
	"go-cms-app/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ErrMissingIDToken is returned when the provider's token response carries no id_token.
var ErrMissingIDToken = errors.New("no id_token field in oauth2 token")

// Authenticator signs users in against an OIDC provider.
type Authenticator struct {
	*oidc.Provider
	*oauth2.Config
	*oidc.IDTokenVerifier
}

// Identity is the verified user behind a completed login.
type Identity struct {
	Subject string
	Name    string
}

// NewAuthenticator discovers the provider at cfg.IssuerURL and prepares the
// OAuth2 client used for the authorization code flow.
func NewAuthenticator(ctx context.Context, cfg *config.OIDCConfig) (*Authenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}

	return &Authenticator{
		Provider:        provider,
		IDTokenVerifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// Identify exchanges an authorization code and verifies the returned ID token.
// The display name falls back to the email claim.
func (a *Authenticator) Identify(ctx context.Context, code string) (*Identity, error) {
	token, err := a.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, ErrMissingIDToken
	}
	idToken, err := a.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return &Identity{Subject: idToken.Subject, Name: name}, nil
}
