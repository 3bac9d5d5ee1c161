package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// One-time token types understood by /auth/v1/verify.
const (
	TypeInvite   = "invite"
	TypeRecovery = "recovery"
	TypeSignup   = "signup"
)

// Credential kinds recovered from a link, in priority order.
const (
	KindAccessToken = "access_token"
	KindTokenHash   = "token_hash"
	KindCode        = "code"
)

var ErrNoCredentials = errors.New("link carries no usable credentials")

// LinkError is an error the provider embedded into the redirect link.
type LinkError struct {
	Code        string
	Description string
}

func (e *LinkError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// InviteToken is whatever credential an invitation or recovery link carried.
type InviteToken struct {
	Kind         string `json:"kind"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenHash    string `json:"tokenHash,omitempty"`
	Type         string `json:"type,omitempty"`
	Code         string `json:"code,omitempty"`
}

// ParseInviteLink recovers credentials from a redirect link. The provider may
// put them in the fragment or the query depending on the flow, so both are
// read: fragment access_token, query access_token, token_hash, then a PKCE
// code.
func ParseInviteLink(raw string) (InviteToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InviteToken{}, ErrNoCredentials
	}
	u, err := url.Parse(raw)
	if err != nil {
		return InviteToken{}, fmt.Errorf("invalid link: %w", err)
	}

	fragment, _ := url.ParseQuery(u.EscapedFragment())
	query := u.Query()

	for _, vals := range []url.Values{fragment, query} {
		if code, desc := vals.Get("error_code"), vals.Get("error_description"); code != "" || desc != "" || vals.Get("error") != "" {
			if code == "" {
				code = vals.Get("error")
			}
			return InviteToken{}, &LinkError{Code: code, Description: desc}
		}
	}

	for _, vals := range []url.Values{fragment, query} {
		if at := vals.Get("access_token"); at != "" {
			return InviteToken{
				Kind:         KindAccessToken,
				AccessToken:  at,
				RefreshToken: vals.Get("refresh_token"),
				Type:         vals.Get("type"),
			}, nil
		}
	}

	if th := firstOf(query, fragment, "token_hash"); th != "" {
		typ := firstOf(query, fragment, "type")
		if typ == "" {
			typ = TypeInvite
		}
		return InviteToken{Kind: KindTokenHash, TokenHash: th, Type: typ}, nil
	}

	if code := firstOf(query, fragment, "code"); code != "" {
		return InviteToken{Kind: KindCode, Code: code}, nil
	}

	return InviteToken{}, ErrNoCredentials
}

func firstOf(a, b url.Values, key string) string {
	if v := a.Get(key); v != "" {
		return v
	}
	return b.Get(key)
}

// Redeem turns a parsed link credential into a session. Access-token links
// already are a session; the other kinds need a round trip.
func (c *Client) Redeem(ctx context.Context, tok InviteToken, verifier string) (*Session, error) {
	switch tok.Kind {
	case KindAccessToken:
		user, err := c.ValidateToken(ctx, tok.AccessToken)
		if err != nil {
			return nil, err
		}
		return &Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, TokenType: "bearer", User: user}, nil
	case KindTokenHash:
		return c.VerifyTokenHash(ctx, tok.Type, tok.TokenHash)
	case KindCode:
		return c.ExchangeCode(ctx, tok.Code, verifier)
	default:
		return nil, ErrNoCredentials
	}
}
