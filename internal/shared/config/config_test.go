package config

import "testing"

func TestLoadNormalizesEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("ASSISTANT_PROVIDER", "OpenAI")
	t.Setenv("EVENTS_BACKEND", "rabbitmq")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3 store, got %q", cfg.ObjectStoreType)
	}
	if cfg.AssistantProvider != "openai" {
		t.Fatalf("expected openai provider, got %q", cfg.AssistantProvider)
	}
	if cfg.EventsBackend != "amqp" {
		t.Fatalf("expected amqp events, got %q", cfg.EventsBackend)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowOrigin)
	}
	if cfg.PublicBaseURL != "http://localhost:9090" {
		t.Fatalf("unexpected public base url %q", cfg.PublicBaseURL)
	}
	if cfg.IsDevLike() {
		t.Fatalf("production must not be dev-like")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("ASSISTANT_PROVIDER", "")
	t.Setenv("EVENTS_BACKEND", "")
	t.Setenv("DEFAULT_AVATAR_URL", "")

	cfg := Load()

	if cfg.Env != "dev" || !cfg.IsDevLike() {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.AssistantProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", cfg.AssistantProvider)
	}
	if cfg.EventsBackend != "log" {
		t.Fatalf("expected log events, got %q", cfg.EventsBackend)
	}
	if cfg.DefaultAvatarURL != DefaultAvatarURL {
		t.Fatalf("expected default avatar url")
	}
}
