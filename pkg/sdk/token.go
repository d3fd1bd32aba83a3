package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ClockSkew is the tolerance applied when comparing a token's exp claim with the current time.
const ClockSkew = 30 * time.Second

const (
	tokenErrEmpty   = "Token is empty or invalid"
	tokenErrDecode  = "Could not decode token"
	tokenErrExpired = "Token has expired"
)

// segmentDecoder decodes base64url JWT segments, with or without padding.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// TokenValidation is the result of inspecting a JWT without verifying its signature.
type TokenValidation struct {
	Valid             bool
	Expired           bool
	HasValidStructure bool
	Claims            jwt.MapClaims
	Error             string
}

// ValidateToken checks structure and expiry of token against the current time.
func ValidateToken(token string) TokenValidation {
	return ValidateTokenAt(token, time.Now())
}

// ValidateTokenAt checks structure and expiry of token against now.
// It fails closed: anything that cannot be decoded, or that carries no exp
// claim, is reported as expired.
func ValidateTokenAt(token string, now time.Time) TokenValidation {
	token = CleanToken(token)
	if token == "" {
		return TokenValidation{Expired: true, Error: tokenErrEmpty}
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		return TokenValidation{Expired: true, Error: tokenErrDecode}
	}

	expired := claimsExpired(claims, now)
	result := TokenValidation{
		Valid:             !expired,
		Expired:           expired,
		HasValidStructure: true,
		Claims:            claims,
	}
	if expired {
		result.Error = tokenErrExpired
	}
	return result
}

// DecodeClaims decodes the payload segment of a three-part JWT.
// The signature is not verified; claims are for display and gating only.
func DecodeClaims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token has %d segments, want 3", len(parts))
	}

	payload, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload segment: %w", err)
	}

	var claims jwt.MapClaims
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("parse payload json: %w", err)
	}
	if claims == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}
	return claims, nil
}

// CleanToken trims whitespace and stray surrounding quotes from a stored token.
func CleanToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.Trim(token, `"'`)
	return strings.TrimSpace(token)
}

// TokenExpiration returns the exp claim of token, if it can be decoded.
func TokenExpiration(token string) (time.Time, bool) {
	claims, err := DecodeClaims(CleanToken(token))
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Unix() == 0 {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TimeUntilExpiration reports how long token remains valid. It returns false
// when the token cannot be decoded or has already expired.
func TimeUntilExpiration(token string, now time.Time) (time.Duration, bool) {
	exp, ok := TokenExpiration(token)
	if !ok {
		return 0, false
	}
	remaining := exp.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func claimsExpired(claims jwt.MapClaims, now time.Time) bool {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Unix() == 0 {
		return true
	}
	return exp.Unix() < now.Add(-ClockSkew).Unix()
}

// tokenSource feeds the current session token to oauth2.Transport,
// rejecting it locally when it is missing or no longer valid.
type tokenSource struct {
	current func() string
}

// NewTokenSource returns an oauth2.TokenSource that re-reads and re-validates
// the token on every request. A missing or invalid token yields an
// *APIError of kind KindUnauthenticated and no request is sent.
func NewTokenSource(current func() string) oauth2.TokenSource {
	return &tokenSource{current: current}
}

// StaticTokenSource wraps a fixed token in a validating TokenSource.
func StaticTokenSource(token string) oauth2.TokenSource {
	return NewTokenSource(func() string { return token })
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	raw := ""
	if s.current != nil {
		raw = CleanToken(s.current())
	}
	if raw == "" {
		return nil, &APIError{
			Kind:    KindUnauthenticated,
			Status:  401,
			Message: MsgNoToken,
		}
	}

	validation := ValidateToken(raw)
	if !validation.Valid {
		return nil, &APIError{
			Kind:         KindUnauthenticated,
			Status:       401,
			Message:      MsgTokenRejected,
			TokenExpired: true,
		}
	}

	token := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, err := validation.Claims.GetExpirationTime(); err == nil && exp != nil {
		token.Expiry = exp.Time
	}
	return token, nil
}
