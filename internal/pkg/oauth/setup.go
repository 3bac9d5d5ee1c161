package oauth

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/openidConnect"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/cache"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/env"
)

// ProviderName is the path segment of the dashboard login routes.
const ProviderName = "openid-connect"

// Config is the OpenID Connect client of the dashboard login.
type Config struct {
	ClientID     string
	ClientSecret string
	DiscoveryURL string
	CallbackURL  string
	Scopes       []string
}

// LoadConfig reads OIDC_* variables. Enabled reports whether login is configured.
func LoadConfig() Config {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	scopes := strings.Fields(env.GetEnv("OIDC_SCOPES", "openid email profile"))
	return Config{
		ClientID:     env.GetEnv("OIDC_CLIENT_ID", ""),
		ClientSecret: env.GetEnv("OIDC_CLIENT_SECRET", ""),
		DiscoveryURL: env.GetEnv("OIDC_DISCOVERY_URL", ""),
		CallbackURL:  base + "/auth/" + ProviderName + "/callback",
		Scopes:       scopes,
	}
}

func (c Config) Enabled() bool {
	return c.ClientID != "" && c.DiscoveryURL != ""
}

// Setup registers the OpenID Connect provider and the OAuth state store.
// Without OIDC configuration the dashboard login is disabled and nil is returned.
func Setup() error {
	cfg := LoadConfig()
	if !cfg.Enabled() {
		log.Warn("[OAuth] OIDC_CLIENT_ID or OIDC_DISCOVERY_URL not set, dashboard login disabled")
		return nil
	}

	provider, err := openidConnect.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, cfg.DiscoveryURL, cfg.Scopes...)
	if err != nil {
		return fmt.Errorf("openid connect discovery: %w", err)
	}
	goth.UseProviders(provider)

	// OAuth state via Redis, using same connection as app sessions (separate DB)
	host, port := env.GetEnv("CACHE_HOST", "127.0.0.1"), env.GetEnvInt("CACHE_PORT", 6379)
	username, password := "", env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		opts := cacheClient.Options()
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		}
		username, password = opts.Username, opts.Password
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     10 * time.Minute,
	})

	log.Infof("[OAuth] dashboard login enabled via %s", cfg.DiscoveryURL)
	return nil
}
