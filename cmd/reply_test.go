package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/autoreply/internal/config"
)

func TestReadEvent(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "event.json")
	os.WriteFile(good, []byte(`{"conversationId":"c1","messageText":"Oi","senderAddress":"5511988887777","contactType":"carrier"}`), 0600)
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"conversationId":"c1"}`), 0600)

	ev, err := readEvent(good)
	if err != nil {
		t.Fatalf("readEvent: %v", err)
	}
	if ev.ConversationID != "c1" || ev.ContactType != "carrier" {
		t.Errorf("event = %+v", ev)
	}
	if _, err := readEvent(bad); err == nil {
		t.Error("expected validation error")
	}
	if _, err := readEvent(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInitTelemetry(t *testing.T) {
	shutdown, err := initTelemetry(context.Background(), config.TelemetryConfig{})
	if err != nil || shutdown == nil {
		t.Fatalf("disabled telemetry: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Error(err)
	}

	if _, err := initTelemetry(context.Background(), config.TelemetryConfig{Enabled: true}); err == nil {
		t.Error("expected error without endpoint")
	}
	if _, err := initTelemetry(context.Background(), config.TelemetryConfig{Enabled: true, Endpoint: "x:1", Protocol: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown protocol")
	}
}

func TestMigrationsSource(t *testing.T) {
	t.Setenv("AUTOREPLY_MIGRATIONS_DIR", "/srv/migrations")
	if got := migrationsSource(); got != "file:///srv/migrations" {
		t.Errorf("env source = %q", got)
	}

	migrationsDir = "/opt/autoreply/migrations"
	t.Cleanup(func() { migrationsDir = "" })
	if got := migrationsSource(); got != "file:///opt/autoreply/migrations" {
		t.Errorf("flag source = %q", got)
	}
}
