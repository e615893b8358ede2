package governance

import (
	"fmt"
	"strings"

	"github.com/astralabs/astra/internal/plan"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Verdict contains the outcome of validating a plan.
type Verdict struct {
	Effect            Effect
	Reason            string
	NeedsConfirmation bool
}

// Allowed reports whether the plan may proceed to dispatch.
func (v Verdict) Allowed() bool {
	return v.Effect == EffectAllow
}

// Guard is the safety boundary between resolver output and real side
// effects. It validates plans against a fixed action allowlist, an
// application allowlist, and a destructive-pattern denylist.
type Guard struct {
	actions     map[plan.Action]bool
	apps        map[string]bool
	aliases     map[string]string
	destructive []string
	sensitive   map[plan.Action]bool
}

// NewGuard builds a guard from the given ruleset. Empty ruleset fields fall
// back to the compiled-in defaults.
func NewGuard(rules Ruleset) *Guard {
	rules = rules.withDefaults()

	g := &Guard{
		actions:     make(map[plan.Action]bool, len(plan.Vocabulary)),
		apps:        make(map[string]bool, len(rules.AllowedApps)),
		aliases:     make(map[string]string, len(rules.AppAliases)),
		destructive: make([]string, 0, len(rules.DestructivePatterns)),
		sensitive:   make(map[plan.Action]bool, len(rules.SensitiveActions)),
	}
	for _, a := range plan.Vocabulary {
		g.actions[a] = true
	}
	for _, app := range rules.AllowedApps {
		g.apps[strings.ToLower(strings.TrimSpace(app))] = true
	}
	for alias, canonical := range rules.AppAliases {
		g.aliases[strings.ToLower(strings.TrimSpace(alias))] = strings.ToLower(canonical)
	}
	for _, p := range rules.DestructivePatterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			g.destructive = append(g.destructive, p)
		}
	}
	for _, a := range rules.SensitiveActions {
		g.sensitive[plan.Action(strings.ToLower(strings.TrimSpace(a)))] = true
	}
	return g
}

// Validate checks the whole plan and short-circuits on the first violation.
// It is a pure function of its input: no side effects, same verdict for the
// same plan every time.
func (g *Guard) Validate(p plan.Plan) Verdict {
	if !p.Valid() {
		return Verdict{Effect: EffectDeny, Reason: "invalid plan structure"}
	}

	if strings.ToLower(p.Intent) == plan.IntentBlocked {
		return Verdict{Effect: EffectDeny, Reason: "this request was blocked as unsafe"}
	}

	if len(p.Steps) == 0 {
		return Verdict{Effect: EffectAllow, Reason: "no steps to execute"}
	}

	needsConfirmation := false

	for _, step := range p.Steps {
		target := strings.ToLower(step.Target)
		value := strings.ToLower(step.Value)

		if !g.actions[step.Action] {
			return Verdict{Effect: EffectDeny, Reason: fmt.Sprintf("action '%s' is not allowed", step.Action)}
		}

		if step.Action == plan.ActionOpenApp || step.Action == plan.ActionCloseApp {
			if !g.appAllowed(target) {
				return Verdict{Effect: EffectDeny, Reason: fmt.Sprintf("application '%s' is not in the allowlist", step.Target)}
			}
		}

		// The destructive scan overrides everything else: target and value
		// are free text and can smuggle shell payloads through an allowed
		// action.
		combined := target + " " + value
		for _, kw := range g.destructive {
			if strings.Contains(combined, kw) {
				return Verdict{Effect: EffectDeny, Reason: fmt.Sprintf("destructive command detected and blocked: %s", kw)}
			}
		}

		if g.sensitive[step.Action] {
			needsConfirmation = true
		}
	}

	return Verdict{Effect: EffectAllow, Reason: "safe", NeedsConfirmation: needsConfirmation}
}

// appAllowed matches the target against the allowlist by exact name or
// documented alias. Substring matching is deliberately not used: an
// allowed name embedded in an unrelated string must not pass.
func (g *Guard) appAllowed(target string) bool {
	target = strings.TrimSpace(target)
	if g.apps[target] {
		return true
	}
	if canonical, ok := g.aliases[target]; ok {
		return g.apps[canonical]
	}
	return false
}
