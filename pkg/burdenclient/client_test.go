//go:build integration

// Integration test for the client against a live server.
// Requires a running server: go run ./cmd/burdens
//
// Run: go test -tags=integration ./pkg/burdenclient/
package burdenclient_test

import (
	"context"
	"os"
	"testing"

	"github.com/kushankb/burdens-app/pkg/burdenclient"
)

func baseURL() string {
	if u := os.Getenv("BURDENS_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8090"
}

func client() *burdenclient.Client {
	return burdenclient.New(baseURL())
}

func TestHealth(t *testing.T) {
	_, body, err := client().Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Fatalf("status=%q, want ok", body.Status)
	}
}

func TestGetInfo(t *testing.T) {
	_, body, err := client().GetInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Name != "burdens-app" {
		t.Fatalf("name=%q, want burdens-app", body.Name)
	}
}

func TestSessionActions(t *testing.T) {
	c := client()
	ctx := context.Background()

	_, created, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatal("create:", err)
	}

	_, s, err := c.SetThreshold(ctx, created.ID, "liberal")
	if err != nil {
		t.Fatal("threshold:", err)
	}
	if s.State.Threshold != "liberal" {
		t.Fatalf("threshold=%q, want liberal", s.State.Threshold)
	}

	_, s, err = c.Reset(ctx, created.ID)
	if err != nil {
		t.Fatal("reset:", err)
	}
	if s.State.Threshold != "strict" {
		t.Fatalf("threshold=%q after reset, want strict", s.State.Threshold)
	}
}

func TestQuery(t *testing.T) {
	_, body, err := client().Query(context.Background(), "SELECT 1 as ok")
	if err != nil {
		t.Skip("analytics database not available:", err)
	}
	if body.Count != 1 {
		t.Fatalf("count=%d, want 1", body.Count)
	}
}

func TestListTables(t *testing.T) {
	_, _, err := client().ListTables(context.Background())
	if err != nil {
		t.Skip("analytics database not available:", err)
	}
}
