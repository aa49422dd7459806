package container

import (
	"context"
	"testing"

	"github.com/oksasatya/go-firestore-crud/config"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

func TestNewInMemory(t *testing.T) {
	cfg, err := config.FromValues(map[string]string{
		"google.cloud.project.id":     "demo-project",
		"firestore.database.uid":      "uid",
		"firestore.database.location": "nam5",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	c := NewInMemory(cfg, helpers.NewNopLogger())
	if c.Service == nil || c.Repo == nil {
		t.Fatalf("service not wired")
	}
	if c.Service.Events != nil || c.Service.Search != nil || c.Service.Snapshots != nil {
		t.Fatalf("optional integrations must stay unset")
	}
	if !c.TestConnection(context.Background()) {
		t.Fatalf("in-memory container should always be ready")
	}
	ctx := context.Background()
	if _, err := c.Service.CreateUser(ctx, "John Doe", "john@example.com", 30); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	c.Shutdown(ctx)
	c.Shutdown(ctx)
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, helpers.NewNopLogger()); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
