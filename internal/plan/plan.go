package plan

import "strings"

// Action names one operation from the fixed assistant vocabulary.
// Anything outside this set is rejected by the guard and the dispatcher.
type Action string

const (
	ActionOpenApp           Action = "open_app"
	ActionCloseApp          Action = "close_app"
	ActionSwitchWindow      Action = "switch_window"
	ActionTypeText          Action = "type_text"
	ActionMouseClick        Action = "mouse_click"
	ActionSearchBrowser     Action = "search_browser"
	ActionVolumeControl     Action = "volume_control"
	ActionBrightnessControl Action = "brightness_control"
	ActionSystemShutdown    Action = "system_shutdown"
	ActionWhatsAppMessage   Action = "whatsapp_message"
	ActionSearchFile        Action = "search_file"
)

// Vocabulary lists every dispatchable action.
var Vocabulary = []Action{
	ActionOpenApp, ActionCloseApp, ActionSwitchWindow, ActionTypeText,
	ActionMouseClick, ActionSearchBrowser, ActionVolumeControl,
	ActionBrightnessControl, ActionSystemShutdown, ActionWhatsAppMessage,
	ActionSearchFile,
}

// Reserved intent values produced by the resolver itself.
const (
	IntentBlocked = "blocked"
	IntentError   = "error"
	IntentEmpty   = "empty"
	IntentUnknown = "unknown"
)

// Step is one atomic action request within a Plan.
type Step struct {
	Action Action `json:"action"`
	Target string `json:"target"`
	Value  string `json:"value"`
}

// Plan is the structured output of intent resolution: an intent label plus
// an ordered step sequence. Step order is execution order.
type Plan struct {
	Intent  string `json:"intent"`
	Steps   []Step `json:"steps"`
	Message string `json:"message,omitempty"`
}

// Valid reports whether the plan satisfies the structural contract the rest
// of the pipeline assumes: a non-empty intent and a step sequence whose
// entries all carry an action name.
func (p Plan) Valid() bool {
	if strings.TrimSpace(p.Intent) == "" {
		return false
	}
	for _, s := range p.Steps {
		if strings.TrimSpace(string(s.Action)) == "" {
			return false
		}
	}
	return true
}

// Status values recorded per executed step.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusError          Status = "error"
	StatusNotImplemented Status = "not_implemented"
)

// StepResult is the outcome of one attempted step.
type StepResult struct {
	Index   int    `json:"step"`
	Action  Action `json:"action"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report is the ordered per-step outcome record for one plan execution.
// Steps never attempted (after a failure) do not appear.
type Report []StepResult

// AllSucceeded reports whether every attempted step completed.
func (r Report) AllSucceeded() bool {
	for _, sr := range r {
		if sr.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// FailedActions returns the action names of non-successful entries,
// in report order.
func (r Report) FailedActions() []string {
	var failed []string
	for _, sr := range r {
		if sr.Status != StatusSuccess {
			failed = append(failed, string(sr.Action))
		}
	}
	return failed
}
