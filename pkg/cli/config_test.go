package cli

import (
	"path/filepath"
	"testing"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"AIzaSy1234567890abcd", "AIza************abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := MaskAPIKey(tt.key)
			if got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestContext_GetExtra_NilMap(t *testing.T) {
	ctx := &Context{Name: "test"}
	if got := ctx.GetExtra("key"); got != "" {
		t.Errorf("GetExtra on nil map = %q, want empty string", got)
	}
}

func TestContext_SetExtra(t *testing.T) {
	ctx := &Context{Name: "test"}
	ctx.SetExtra("listen", ":8090")
	if got := ctx.GetExtra("listen"); got != ":8090" {
		t.Errorf("GetExtra = %q, want :8090", got)
	}
}

func TestConfig_ContextLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := cfg.GetCurrentContext(); err == nil {
		t.Error("GetCurrentContext on empty config: expected error")
	}

	if err := cfg.AddContext("dev", &Context{APIKey: "key-dev", Model: "models/gemini-2.0-flash-exp"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cfg.UseContext("dev"); err != nil {
		t.Fatalf("use: %v", err)
	}

	// Reload from disk and verify persistence.
	cfg2, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	ctx, err := cfg2.GetCurrentContext()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if ctx.APIKey != "key-dev" {
		t.Errorf("APIKey = %q, want key-dev", ctx.APIKey)
	}
	if ctx.Name != "dev" {
		t.Errorf("Name = %q, want dev", ctx.Name)
	}

	// ResolveContext falls back to current when name is empty.
	if got, err := cfg2.ResolveContext(""); err != nil || got.Name != "dev" {
		t.Errorf("ResolveContext(\"\") = %v, %v", got, err)
	}

	if err := cfg2.DeleteContext("dev"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cfg2.CurrentContext != "" {
		t.Errorf("CurrentContext after delete = %q, want empty", cfg2.CurrentContext)
	}
	if err := cfg2.UseContext("dev"); err == nil {
		t.Error("UseContext on deleted context: expected error")
	}
}
