package config

import "testing"

func TestLoadSyncdRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadSyncd(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadSyncdDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REMOTE_STORE", "")
	t.Setenv("CATALOG_BASE_URL", "")
	t.Setenv("CATALOG_CACHE_TTL_SEC", "")
	t.Setenv("PUSH_VIA_NATS", "")
	cfg, err := LoadSyncd()
	if err != nil {
		t.Fatalf("LoadSyncd: %v", err)
	}
	if cfg.RemoteStore != RemoteMemory {
		t.Fatalf("expected default remote store %q, got %q", RemoteMemory, cfg.RemoteStore)
	}
	if cfg.CatalogBaseURL != "https://ophim1.com/v1/api" {
		t.Fatalf("unexpected default catalog base url %q", cfg.CatalogBaseURL)
	}
	if cfg.CatalogCacheTTLSec != 300 {
		t.Fatalf("expected default cache ttl 300, got %d", cfg.CatalogCacheTTLSec)
	}
	if cfg.PushViaNATS {
		t.Fatal("push via NATS must default off")
	}
}

func TestLoadSyncdHTTPRequiresURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REMOTE_STORE", "http")
	t.Setenv("COLLECTION_SERVICE_URL", "")
	if _, err := LoadSyncd(); err == nil {
		t.Fatal("expected error without COLLECTION_SERVICE_URL")
	}

	t.Setenv("COLLECTION_SERVICE_URL", "https://collections.example")
	cfg, err := LoadSyncd()
	if err != nil {
		t.Fatalf("LoadSyncd: %v", err)
	}
	if cfg.CollectionServiceURL != "https://collections.example" {
		t.Fatalf("unexpected url %q", cfg.CollectionServiceURL)
	}
}

func TestLoadSyncdUnknownRemote(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REMOTE_STORE", "carrier-pigeon")
	if _, err := LoadSyncd(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
