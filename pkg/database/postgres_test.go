package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/rebalancer/pkg/config"
)

func TestNewWithoutURL(t *testing.T) {
	cfg := config.Default()

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error when DATABASE_URL is missing, got nil")
	}
}

func TestNewInvalidURL(t *testing.T) {
	cfg := config.Default()
	cfg.Database.URL = "://not a url"

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected parse error, got nil")
	}
}

func TestEnsureSchemaAndHealth(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg := config.Default()
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.MaxConns = 2
	cfg.Database.MinConns = 0

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// idempotent
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	status := db.HealthCheck(ctx)
	if !status.Healthy {
		t.Errorf("Expected database to be healthy: %s", status.Error)
	}
	if status.MaxConns != 2 {
		t.Errorf("Expected MaxConns 2, got %d", status.MaxConns)
	}
}
