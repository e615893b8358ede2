package governance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Ruleset holds the guard's configurable rules. The action vocabulary is
// fixed and not part of the ruleset.
type Ruleset struct {
	AllowedApps         []string          `yaml:"allowed_apps"`
	AppAliases          map[string]string `yaml:"app_aliases"`
	DestructivePatterns []string          `yaml:"destructive_patterns"`
	SensitiveActions    []string          `yaml:"sensitive_actions"`
}

// DefaultRuleset returns the built-in policy rules.
func DefaultRuleset() Ruleset {
	return Ruleset{
		AllowedApps: []string{
			"notepad", "calculator", "chrome", "msedge", "firefox",
			"spotify", "vlc", "explorer", "cmd", "powershell", "taskmgr",
		},
		AppAliases: map[string]string{
			"google chrome": "chrome",
			"edge":          "msedge",
			"calc":          "calculator",
			"file explorer": "explorer",
			"task manager":  "taskmgr",
		},
		DestructivePatterns: []string{
			"rm -rf", "del /", "format", "erase", "wipe",
			"shutdown /s", "drop table", "reg delete", "mkfs", "dd if=",
		},
		SensitiveActions: []string{
			"system_shutdown", "whatsapp_message",
		},
	}
}

// LoadRuleset reads a YAML policy file and overlays it on the defaults.
// Missing sections keep their default values.
func LoadRuleset(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("read policy file: %w", err)
	}
	var rules Ruleset
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Ruleset{}, fmt.Errorf("parse policy file: %w", err)
	}
	return rules.withDefaults(), nil
}

func (r Ruleset) withDefaults() Ruleset {
	def := DefaultRuleset()
	if len(r.AllowedApps) == 0 {
		r.AllowedApps = def.AllowedApps
	}
	if len(r.AppAliases) == 0 {
		r.AppAliases = def.AppAliases
	}
	if len(r.DestructivePatterns) == 0 {
		r.DestructivePatterns = def.DestructivePatterns
	}
	if len(r.SensitiveActions) == 0 {
		r.SensitiveActions = def.SensitiveActions
	}
	return r
}
