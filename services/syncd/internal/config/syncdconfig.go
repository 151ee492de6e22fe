package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	platform "github.com/example/movie-platform/internal/platform/config"
)

// Remote store backends.
const (
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
	RemoteHTTP     = "http"
)

type SyncdConfig struct {
	JWTSecret []byte

	// DataDir holds the bbolt file; empty keeps all state in memory.
	DataDir string

	RemoteStore          string
	CollectionServiceURL string
	CollectionServiceKey string

	// PushViaNATS publishes incremental pushes as events for the syncworker
	// instead of writing the account store directly.
	PushViaNATS bool

	CatalogBaseURL     string
	CatalogCacheTTLSec int
}

func LoadSyncd() (SyncdConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return SyncdConfig{}, errors.New("JWT_SECRET is required")
	}

	cfg := SyncdConfig{
		JWTSecret:          []byte(secret),
		DataDir:            strings.TrimSpace(os.Getenv("SYNCD_DATA_DIR")),
		RemoteStore:        platform.Env("REMOTE_STORE", RemoteMemory),
		CatalogBaseURL:     platform.Env("CATALOG_BASE_URL", "https://ophim1.com/v1/api"),
		CatalogCacheTTLSec: envInt("CATALOG_CACHE_TTL_SEC", 300),
		PushViaNATS:        envBool("PUSH_VIA_NATS", false),
	}

	switch cfg.RemoteStore {
	case RemoteMemory, RemotePostgres:
	case RemoteHTTP:
		cfg.CollectionServiceURL = strings.TrimSpace(os.Getenv("COLLECTION_SERVICE_URL"))
		if cfg.CollectionServiceURL == "" {
			return SyncdConfig{}, errors.New("COLLECTION_SERVICE_URL is required for REMOTE_STORE=http")
		}
		cfg.CollectionServiceKey = strings.TrimSpace(os.Getenv("COLLECTION_SERVICE_KEY"))
	default:
		return SyncdConfig{}, fmt.Errorf("unknown REMOTE_STORE %q", cfg.RemoteStore)
	}
	return cfg, nil
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
