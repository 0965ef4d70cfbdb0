package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

const testBaseURL = "http://localhost:3001/api/objects"

func TestCreateObjectStore_Memory(t *testing.T) {
	store, err := CreateObjectStore(context.Background(), &StoreConfig{Type: "memory"}, testBaseURL)
	if err != nil {
		t.Fatalf("Failed to create memory object store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Put(ctx, "users/u1/repositories/r/a.txt", []byte("a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	url, err := store.URL(ctx, "users/u1/repositories/r/a.txt")
	if err != nil {
		t.Fatalf("URL failed: %v", err)
	}
	if !strings.HasPrefix(url, testBaseURL+"/") {
		t.Errorf("Expected URL below %s, got %s", testBaseURL, url)
	}
}

func TestCreateObjectStore_Filesystem(t *testing.T) {
	cfg := &StoreConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": t.TempDir()},
	}

	store, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err != nil {
		t.Fatalf("Failed to create filesystem object store: %v", err)
	}
	_ = store.Close()
}

func TestCreateObjectStore_FilesystemMissingPath(t *testing.T) {
	cfg := &StoreConfig{Type: "filesystem", Filesystem: map[string]any{}}

	_, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateObjectStore_Badger(t *testing.T) {
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":             filepath.Join(t.TempDir(), "objects.db"),
			"block_cache_size_mb": "16", // strings are accepted, as from env
		},
	}

	store, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err != nil {
		t.Fatalf("Failed to create badger object store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateObjectStore_BadgerMissingPath(t *testing.T) {
	cfg := &StoreConfig{Type: "badger", Badger: map[string]any{}}

	_, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err == nil || !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateObjectStore_S3MissingBucket(t *testing.T) {
	cfg := &StoreConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}}

	_, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err == nil || !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateObjectStore_S3MissingRegion(t *testing.T) {
	cfg := &StoreConfig{Type: "s3", S3: map[string]any{"bucket": "repos"}}

	_, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err == nil || !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateObjectStore_S3InvalidExpiry(t *testing.T) {
	cfg := &StoreConfig{Type: "s3", S3: map[string]any{"bucket": "repos", "region": "us-east-1", "url_expiry": "soon"}}

	_, err := CreateObjectStore(context.Background(), cfg, testBaseURL)
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("Expected decode error, got: %v", err)
	}
}

func TestCreateObjectStore_UnknownType(t *testing.T) {
	_, err := CreateObjectStore(context.Background(), &StoreConfig{Type: "ftp"}, testBaseURL)
	if err == nil || !strings.Contains(err.Error(), "unknown object store type") {
		t.Errorf("Expected 'unknown object store type' error, got: %v", err)
	}
}

func TestCreateIdentityProvider(t *testing.T) {
	ctx := context.Background()

	memoryProvider, err := CreateIdentityProvider(ctx, &IdentityConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory provider: %v", err)
	}
	_ = memoryProvider.Close()

	badgerProvider, err := CreateIdentityProvider(ctx, &IdentityConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "accounts.db")},
	})
	if err != nil {
		t.Fatalf("Failed to create badger provider: %v", err)
	}
	account, err := badgerProvider.CreateAccount(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if account.ID == "" {
		t.Error("Expected account ID")
	}
	_ = badgerProvider.Close()

	if _, err := CreateIdentityProvider(ctx, &IdentityConfig{Type: "badger", Badger: map[string]any{}}); err == nil {
		t.Error("Expected error for missing db_path")
	}
	if _, err := CreateIdentityProvider(ctx, &IdentityConfig{Type: "ldap"}); err == nil {
		t.Error("Expected error for unknown type")
	}
}

func TestInitializeServices(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Identity.Type = "memory"

	services, err := InitializeServices(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("InitializeServices failed: %v", err)
	}
	defer func() { _ = services.Close() }()

	result := services.Manager.List(context.Background(), "u1")
	if !result.Success {
		t.Errorf("Expected empty listing to succeed, got %q", result.Message)
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Identity.Type = "memory"
	cfg.Server.RateLimit.Enabled = true

	services, err := InitializeServices(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("InitializeServices failed: %v", err)
	}
	defer func() { _ = services.Close() }()

	adapters := CreateAdapters(cfg, services, &MetricsResult{})
	if len(adapters) != 1 {
		t.Fatalf("Expected only the API adapter without metrics, got %d", len(adapters))
	}
	if adapters[0].Port() != cfg.API.Port {
		t.Errorf("Expected API port %d, got %d", cfg.API.Port, adapters[0].Port())
	}
}

func TestCreateRateLimiters(t *testing.T) {
	cfg := GetDefaultConfig().Server.RateLimit

	if l, c := CreateRateLimiters(&cfg); l != nil || c != nil {
		t.Error("Expected no limiters when disabled")
	}

	cfg.Enabled = true
	cfg.RequestsPerSecond = 0
	l, c := CreateRateLimiters(&cfg)
	if l != nil {
		t.Error("Expected no global limiter for a zero rate")
	}
	if c == nil {
		t.Error("Expected a per-client limiter")
	}
}
