package auth

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Token is an OAuth2 access token with its refresh token and expiry.
// Token values are immutable once handed out; a refresh replaces the
// whole value.
type Token struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// Type returns the token type for the Authorization header, defaulting to
// Bearer and normalizing common spellings.
func (t Token) Type() string {
	switch {
	case t.TokenType == "", strings.EqualFold(t.TokenType, "bearer"):
		return "Bearer"
	case strings.EqualFold(t.TokenType, "mac"):
		return "MAC"
	case strings.EqualFold(t.TokenType, "basic"):
		return "Basic"
	}
	return t.TokenType
}

// Valid reports whether the token has an access token that does not
// expire within margin of now. A zero Expiry never expires.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return now.Add(margin).Before(t.Expiry)
}

// SetAuthHeader sets the Authorization header on r.
func (t Token) SetAuthHeader(r *http.Request) {
	r.Header.Set("Authorization", t.Type()+" "+t.AccessToken)
}

// tokenFromOAuth2 converts a token endpoint response. Expiry is recomputed
// from expires_in against now so the injected clock governs expiry checks.
func tokenFromOAuth2(ot *oauth2.Token, now time.Time) Token {
	tok := Token{
		AccessToken:  ot.AccessToken,
		RefreshToken: ot.RefreshToken,
		TokenType:    ot.TokenType,
		Expiry:       ot.Expiry,
	}
	if ot.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(ot.ExpiresIn) * time.Second)
	}
	if scope, ok := ot.Extra("scope").(string); ok {
		tok.Scope = scope
	}
	return tok
}
