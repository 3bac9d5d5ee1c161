package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	Email        string         `json:"email"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// ValidateToken resolves the user behind an access token. With a JWT secret
// configured the signature is checked locally; otherwise the provider is
// asked and the answer cached for a short while.
func (c *Client) ValidateToken(ctx context.Context, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if c.JWTSecret != "" {
		return c.validateLocal(token)
	}
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	return c.validateRemote(ctx, token)
}

func (c *Client) validateLocal(token string) (*User, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(c.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &User{
		ID:             claims.Subject,
		Email:          claims.Email,
		Role:           roleFrom(claims.AppMetadata, claims.UserMetadata),
		OrganizationID: orgFrom(claims.AppMetadata, claims.UserMetadata),
	}, nil
}

func (c *Client) validateRemote(ctx context.Context, token string) (*User, error) {
	key := tokenCacheKey(token)

	var cached User
	if found, err := c.Cache.GetJSON(ctx, key, &cached); err != nil {
		log.Warnf("[Identity] token cache read failed: %v", err)
	} else if found {
		return &cached, nil
	}

	var pu providerUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, token, nil, &pu); err != nil {
		return nil, err
	}
	if pu.ID == "" {
		return nil, ErrInvalidToken
	}
	user := pu.toUser()

	if ttl := c.cacheTTL(token); ttl > 0 {
		if err := c.Cache.SetJSON(ctx, key, user, ttl); err != nil {
			log.Warnf("[Identity] token cache write failed: %v", err)
		}
	}
	return user, nil
}

// cacheTTL never lets a cached answer outlive the token itself.
func (c *Client) cacheTTL(token string) time.Duration {
	ttl := c.CacheTTL
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil && claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left < ttl {
			ttl = left
		}
	}
	return ttl
}

// InvalidateToken drops a cached validation, used on logout.
func (c *Client) InvalidateToken(ctx context.Context, token string) {
	if err := c.Cache.Delete(ctx, tokenCacheKey(strings.TrimSpace(token))); err != nil {
		log.Warnf("[Identity] token cache delete failed: %v", err)
	}
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:])
}

// IsInvalidToken reports whether err means the caller must re-authenticate.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
