package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"taskboard/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string
	DevMode     bool

	// SHARE_BASE_URL, e.g. https://tasks.example.com/tasks
	ShareBaseURL string

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string
	CookieSecure         bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// rate limits, requests per window (seconds)
	APIRateLimit    int
	APIRateWindow   int
	AuthRateLimit   int
	AuthRateWindow  int
	WriteRateLimit  int
	WriteRateWindow int

	AllowedOrigin string
	LogLevel      string
	LogJSON       bool
}

// Load reads the environment, after an optional .env file.
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) *Config {
	devMode := getenv("DEV_MODE") == "true"

	dbURL := getenv("DATABASE_URL")
	if dbURL == "" && !devMode {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	shareBase := strings.TrimRight(getenv("SHARE_BASE_URL"), "/")
	if shareBase == "" {
		shareBase = "http://localhost:" + port + "/tasks"
	}
	if _, err := SharePrefix(shareBase); err != nil {
		logger.Fatal("invalid SHARE_BASE_URL", "error", err)
	}

	redirectBase := strings.TrimRight(getenv("OAUTH_REDIRECT_BASE_URL"), "/")
	if redirectBase == "" {
		redirectBase = "http://localhost:" + port
	}

	return &Config{
		AppPort:              port,
		DatabaseURL:          dbURL,
		JWTSecret:            jwtSecret,
		DevMode:              devMode,
		ShareBaseURL:         shareBase,
		GoogleClientID:       getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectBaseURL: redirectBase,
		CookieSecure:         getenv("COOKIE_SECURE") == "true",
		RedisAddr:            getenv("REDIS_ADDR"),
		RedisPassword:        getenv("REDIS_PASSWORD"),
		RedisDB:              intEnv(getenv, "REDIS_DB", 0),
		APIRateLimit:         intEnv(getenv, "API_RATE_LIMIT", 120),
		APIRateWindow:        intEnv(getenv, "API_RATE_WINDOW_SECONDS", 60),
		AuthRateLimit:        intEnv(getenv, "AUTH_RATE_LIMIT", 20),
		AuthRateWindow:       intEnv(getenv, "AUTH_RATE_WINDOW_SECONDS", 60),
		WriteRateLimit:       intEnv(getenv, "WRITE_RATE_LIMIT", 60),
		WriteRateWindow:      intEnv(getenv, "WRITE_RATE_WINDOW_SECONDS", 60),
		AllowedOrigin:        getenv("ALLOWED_ORIGIN"),
		LogLevel:             getenv("LOG_LEVEL"),
		LogJSON:              getenv("LOG_JSON") == "true",
	}
}

// reservedPrefixes are served by other routes, so share links cannot live there.
var reservedPrefixes = []string{"/api", "/auth", "/ws", "/dashboard", "/health", "/healthz", "/readyz", "/metrics"}

// SharePrefix returns the path of base, under which the public task page is
// mounted. base must be an absolute URL with a non-root path that does not
// shadow another route.
func SharePrefix(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", base)
	}
	if u.Path == "" || u.Path == "/" {
		return "", fmt.Errorf("%q needs a path such as /tasks", base)
	}
	if u.RawQuery != "" || u.Fragment != "" || strings.ContainsAny(u.Path, ":*") {
		return "", fmt.Errorf("%q must be a plain path", base)
	}
	for _, p := range reservedPrefixes {
		if u.Path == p || strings.HasPrefix(u.Path, p+"/") {
			return "", fmt.Errorf("path %s is taken by %s", u.Path, p)
		}
	}
	return u.Path, nil
}

// GoogleEnabled reports whether OAuth sign-in can be offered.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func intEnv(getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("ignoring invalid integer env", "key", key, "value", v)
		return def
	}
	return n
}
