package governance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/astralabs/astra/internal/plan"
)

func TestLoadRuleset_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")

	content := `allowed_apps:
  - notepad
  - obsidian
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRuleset(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(rules.AllowedApps) != 2 {
		t.Errorf("expected 2 allowed apps, got %d", len(rules.AllowedApps))
	}
	// Sections missing from the file keep their defaults.
	if len(rules.DestructivePatterns) == 0 {
		t.Error("destructive patterns should fall back to defaults")
	}
	if len(rules.SensitiveActions) == 0 {
		t.Error("sensitive actions should fall back to defaults")
	}

	guard := NewGuard(rules)
	v := guard.Validate(plan.Plan{
		Intent: "open_app",
		Steps:  []plan.Step{{Action: plan.ActionOpenApp, Target: "obsidian"}},
	})
	if !v.Allowed() {
		t.Errorf("custom allowlist entry rejected: %s", v.Reason)
	}
	v = guard.Validate(plan.Plan{
		Intent: "open_app",
		Steps:  []plan.Step{{Action: plan.ActionOpenApp, Target: "chrome"}},
	})
	if v.Allowed() {
		t.Error("app outside the custom allowlist should be rejected")
	}
}

func TestLoadRuleset_MissingFile(t *testing.T) {
	if _, err := LoadRuleset(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
