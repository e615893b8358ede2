package governance

import (
	"strings"
	"testing"

	"github.com/astralabs/astra/internal/plan"
)

func TestGuard_AllowsSafePlan(t *testing.T) {
	guard := NewGuard(Ruleset{})

	p := plan.Plan{
		Intent: "open_app",
		Steps: []plan.Step{
			{Action: plan.ActionOpenApp, Target: "notepad"},
		},
	}

	v := guard.Validate(p)
	if !v.Allowed() {
		t.Fatalf("expected allow, got deny: %s", v.Reason)
	}
	if v.Reason != "safe" {
		t.Errorf("expected reason 'safe', got %q", v.Reason)
	}
	if v.NeedsConfirmation {
		t.Error("open_app should not need confirmation")
	}
}

func TestGuard_BlockedIntentAlwaysDenied(t *testing.T) {
	guard := NewGuard(Ruleset{})

	// Blocked intent is denied regardless of step content.
	plans := []plan.Plan{
		{Intent: "blocked", Steps: []plan.Step{}},
		{Intent: "BLOCKED", Steps: []plan.Step{{Action: plan.ActionOpenApp, Target: "notepad"}}},
	}
	for _, p := range plans {
		if v := guard.Validate(p); v.Allowed() {
			t.Errorf("blocked intent was allowed: %+v", p)
		}
	}
}

func TestGuard_UnknownActionRejectsWholePlan(t *testing.T) {
	guard := NewGuard(Ruleset{})

	p := plan.Plan{
		Intent: "open_app",
		Steps: []plan.Step{
			{Action: plan.ActionOpenApp, Target: "notepad"},
			{Action: "delete_everything", Target: "c:"},
		},
	}

	v := guard.Validate(p)
	if v.Allowed() {
		t.Fatal("plan with unknown action must be rejected")
	}
	if !strings.Contains(v.Reason, "delete_everything") {
		t.Errorf("reason should name the offending action, got %q", v.Reason)
	}
}

func TestGuard_AppAllowlist(t *testing.T) {
	guard := NewGuard(Ruleset{})

	cases := []struct {
		target string
		want   bool
	}{
		{"notepad", true},
		{"Notepad", true},          // case-insensitive
		{"google chrome", true},    // documented alias
		{"malware.exe", false},     //
		{"notepad-stealer", false}, // substring of allowed name must not pass
	}

	for _, tc := range cases {
		p := plan.Plan{
			Intent: "open_app",
			Steps:  []plan.Step{{Action: plan.ActionOpenApp, Target: tc.target}},
		}
		v := guard.Validate(p)
		if v.Allowed() != tc.want {
			t.Errorf("target %q: allowed=%v, want %v (%s)", tc.target, v.Allowed(), tc.want, v.Reason)
		}
	}
}

func TestGuard_DestructivePatternOverridesAllowedAction(t *testing.T) {
	guard := NewGuard(Ruleset{})

	p := plan.Plan{
		Intent: "type_text",
		Steps: []plan.Step{
			{Action: plan.ActionTypeText, Target: "cmd", Value: `del /f /s /q C:\`},
		},
	}

	v := guard.Validate(p)
	if v.Allowed() {
		t.Fatal("destructive payload in value must be blocked")
	}
	if !strings.Contains(v.Reason, "destructive") {
		t.Errorf("expected destructive-pattern reason, got %q", v.Reason)
	}
	if v.NeedsConfirmation {
		t.Error("a denied plan must not request confirmation")
	}
}

func TestGuard_SensitiveActionNeedsConfirmation(t *testing.T) {
	guard := NewGuard(Ruleset{})

	p := plan.Plan{
		Intent: "system_shutdown",
		Steps: []plan.Step{
			{Action: plan.ActionVolumeControl, Target: "down", Value: "2"},
			{Action: plan.ActionSystemShutdown},
		},
	}

	v := guard.Validate(p)
	if !v.Allowed() {
		t.Fatalf("expected allow, got: %s", v.Reason)
	}
	if !v.NeedsConfirmation {
		t.Error("shutdown plan must require confirmation")
	}
}

func TestGuard_EmptyStepsTriviallyAllowed(t *testing.T) {
	guard := NewGuard(Ruleset{})

	v := guard.Validate(plan.Plan{Intent: "chat", Steps: []plan.Step{}})
	if !v.Allowed() || v.NeedsConfirmation {
		t.Errorf("empty plan should be trivially allowed, got %+v", v)
	}
}

func TestGuard_InvalidStructureRejected(t *testing.T) {
	guard := NewGuard(Ruleset{})

	cases := []plan.Plan{
		{},                       // no intent
		{Intent: "   "},          // blank intent
		{Intent: "x", Steps: []plan.Step{{Action: ""}}}, // step without action
	}
	for _, p := range cases {
		if v := guard.Validate(p); v.Allowed() {
			t.Errorf("structurally invalid plan allowed: %+v", p)
		}
	}
}

func TestGuard_ValidateIsPure(t *testing.T) {
	guard := NewGuard(Ruleset{})

	p := plan.Plan{
		Intent: "open_app",
		Steps:  []plan.Step{{Action: plan.ActionOpenApp, Target: "spotify"}},
	}

	first := guard.Validate(p)
	second := guard.Validate(p)
	if first != second {
		t.Errorf("validate is not idempotent: %+v vs %+v", first, second)
	}
}
