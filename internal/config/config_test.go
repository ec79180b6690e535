package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
auth:
  admins:
    - "admin-1"
catalog:
  - item_id: "item-1"
    display_name: "Item 1"
    category: "a"
    min_price: 100
    max_price: 200
    min_stock: 1
    max_stock: 5
    per_user_limit: 2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	cfg, err := LoadAndValidate(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Market.ExpiryInterval != 15*time.Second {
		t.Errorf("expected default expiry interval, got %s", cfg.Market.ExpiryInterval)
	}
	if cfg.Market.DefaultBalance != 10000 {
		t.Errorf("expected default balance 10000, got %d", cfg.Market.DefaultBalance)
	}
	if cfg.MySQL.DSN != "" {
		t.Errorf("expected empty dsn, got %q", cfg.MySQL.DSN)
	}
}

func TestLoadAndValidate_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_MARKETD_DSN", "user:pass@tcp(db:3306)/marketd")

	yaml := "mysql:\n  dsn: \"${TEST_MARKETD_DSN}\"\n" + minimalYAML
	cfg, err := LoadAndValidate(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MySQL.DSN != "user:pass@tcp(db:3306)/marketd" {
		t.Errorf("env var not expanded: %q", cfg.MySQL.DSN)
	}
}

func TestLoadAndValidate_RejectsEmptyCatalog(t *testing.T) {
	yaml := `
auth:
  admins: ["admin-1"]
`
	_, err := LoadAndValidate(writeConfig(t, yaml))
	if err == nil || !strings.Contains(err.Error(), "catalog") {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestLoadAndValidate_RejectsNoAdmins(t *testing.T) {
	yaml := `
catalog:
  - item_id: "item-1"
    category: "a"
    min_price: 1
    max_price: 1
    min_stock: 1
    max_stock: 1
    per_user_limit: 1
`
	_, err := LoadAndValidate(writeConfig(t, yaml))
	if err == nil || !strings.Contains(err.Error(), "admins") {
		t.Fatalf("expected admins error, got %v", err)
	}
}

func TestLoadAndValidate_RejectsBadRanges(t *testing.T) {
	cases := []struct {
		name string
		item string
	}{
		{"price range inverted", `{item_id: "x", category: "a", min_price: 200, max_price: 100, min_stock: 1, max_stock: 1, per_user_limit: 1}`},
		{"stock range inverted", `{item_id: "x", category: "a", min_price: 1, max_price: 1, min_stock: 5, max_stock: 1, per_user_limit: 1}`},
		{"zero limit", `{item_id: "x", category: "a", min_price: 1, max_price: 1, min_stock: 1, max_stock: 1, per_user_limit: 0}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yaml := "auth:\n  admins: [\"admin-1\"]\ncatalog:\n  - " + tc.item + "\n"
			if _, err := LoadAndValidate(writeConfig(t, yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
