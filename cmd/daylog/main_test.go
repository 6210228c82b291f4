package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckConfig(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "abc")
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/activity")
	t.Setenv("LOG_FILE_PATH", "")
	t.Setenv("COMMAND_PREFIX", "!")
	t.Setenv("PORT", "8080")
	t.Setenv("REPLY_TIMEOUT_SECONDS", "180")
	t.Setenv("WEBHOOK_TIMEOUT_SECONDS", "10")
	t.Setenv("CONSOLE_ENABLED", "false")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"check-config", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	if err := root.Execute(); err != nil {
		t.Fatalf("check-config failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "delivery targets: webhook") {
		t.Errorf("Expected webhook target in output, got %q", got)
	}
	if !strings.Contains(got, "reply timeout: 3m0s") {
		t.Errorf("Expected reply timeout in output, got %q", got)
	}
}

func TestCheckConfigMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_BOT_TOKEN", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"check-config", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	if err := root.Execute(); err == nil {
		t.Fatal("Expected error for missing token")
	}
}
