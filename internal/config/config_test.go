package config

import "testing"

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := fromEnv(envMap(map[string]string{
		"DATABASE_URL": "postgres://localhost/tasks",
		"JWT_SECRET":   "s",
	}))
	if cfg.AppPort != "8080" {
		t.Fatalf("port = %q", cfg.AppPort)
	}
	if cfg.ShareBaseURL != "http://localhost:8080/tasks" {
		t.Fatalf("share base = %q", cfg.ShareBaseURL)
	}
	if cfg.APIRateLimit != 120 || cfg.WriteRateWindow != 60 {
		t.Fatalf("unexpected rate defaults: %+v", cfg)
	}
	if cfg.GoogleEnabled() {
		t.Fatalf("google should be disabled without credentials")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := fromEnv(envMap(map[string]string{
		"DEV_MODE":         "true",
		"JWT_SECRET":       "s",
		"APP_PORT":         "9000",
		"SHARE_BASE_URL":   "https://tasks.example.com/t/",
		"REDIS_DB":         "3",
		"WRITE_RATE_LIMIT": "not-a-number",
		"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "secret",
	}))
	if !cfg.DevMode || cfg.DatabaseURL != "" {
		t.Fatalf("dev mode without database expected: %+v", cfg)
	}
	if cfg.ShareBaseURL != "https://tasks.example.com/t" {
		t.Fatalf("share base = %q", cfg.ShareBaseURL)
	}
	if cfg.RedisDB != 3 || cfg.WriteRateLimit != 60 {
		t.Fatalf("unexpected ints: redis=%d write=%d", cfg.RedisDB, cfg.WriteRateLimit)
	}
	if !cfg.GoogleEnabled() || cfg.OAuthRedirectBaseURL != "http://localhost:9000" {
		t.Fatalf("unexpected oauth config: %+v", cfg)
	}
}

func TestSharePrefix(t *testing.T) {
	ok := map[string]string{
		"https://tasks.example.com/tasks":  "/tasks",
		"https://tasks.example.com/t/":     "/t",
		"http://localhost:8080/app/shared": "/app/shared",
	}
	for base, want := range ok {
		got, err := SharePrefix(base)
		if err != nil || got != want {
			t.Fatalf("SharePrefix(%q) = %q, %v; want %q", base, got, err, want)
		}
	}

	for _, base := range []string{
		"https://tasks.example.com",
		"https://tasks.example.com/",
		"/tasks",
		"https://tasks.example.com/api/v1/share",
		"https://tasks.example.com/dashboard",
		"https://tasks.example.com/ws",
		"https://tasks.example.com/t/:id",
		"https://tasks.example.com/t?x=1",
	} {
		if _, err := SharePrefix(base); err == nil {
			t.Fatalf("SharePrefix(%q) accepted", base)
		}
	}
}
