package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDemo_InMemory(t *testing.T) {
	out, err := run(t, "demo", "--in-memory")
	if err != nil {
		t.Fatalf("demo: %v\n%s", err, out)
	}
	if !strings.Contains(out, "FIRESTORE CRUD OPERATIONS DEMO") || !strings.Contains(out, "UserStatistics{") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPing_MissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.properties")
	if _, err := run(t, "ping", "--config", missing); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestStats_MissingRequiredKeys(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT_ID", "")
	empty := filepath.Join(t.TempDir(), "empty.properties")
	if err := os.WriteFile(empty, []byte("app.name=usersctl-test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_CONFIG_FILE", empty)
	_, err := run(t, "stats")
	if err == nil || !strings.Contains(err.Error(), "google.cloud.project.id") {
		t.Fatalf("expected missing project id error, got %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := run(t, "frobnicate"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
