package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/astralabs/astra/internal/plan"
)

// SystemController handles OS-level automation: application life-cycle,
// window focus, input simulation and hardware controls.
type SystemController interface {
	OpenApp(ctx context.Context, name string) (bool, error)
	CloseApp(ctx context.Context, name string) (bool, error)
	SwitchWindow(ctx context.Context, title string) (bool, error)
	TypeText(ctx context.Context, text string) (bool, error)
	MouseClick(ctx context.Context) (bool, error)
	ControlVolume(ctx context.Context, direction string, amount int) (bool, error)
	ControlBrightness(ctx context.Context, direction string, amount int) (bool, error)
	Shutdown(ctx context.Context) (bool, error)
}

// BrowserController handles web navigation. PageSummary extracts readable
// text from the current page so the assistant can speak what it found.
type BrowserController interface {
	OpenURL(ctx context.Context, urlOrQuery string) (bool, error)
	PageSummary(ctx context.Context) (string, error)
}

// MessagingController sends messages through an external messaging app.
type MessagingController interface {
	SendMessage(ctx context.Context, contact, body string) (bool, error)
}

// FileController locates files on the local machine.
type FileController interface {
	SearchFile(ctx context.Context, query string) (string, error)
}

// Group is a coarse capability category used for lazy handler construction.
type Group string

const (
	GroupSystem    Group = "system"
	GroupBrowser   Group = "browser"
	GroupMessaging Group = "messaging"
	GroupFiles     Group = "files"
)

// Factories construct capability handlers on first use. A nil factory means
// the capability is unavailable on this host.
type Factories struct {
	System    func() (SystemController, error)
	Browser   func() (BrowserController, error)
	Messaging func() (MessagingController, error)
	Files     func() (FileController, error)
}

// Dispatcher routes validated plan steps to capability handlers and executes
// them strictly in order, stopping at the first failure. It performs no
// safety checks of its own: plans must already have passed the guard.
//
// The handler cache is shared across pipeline runs; the pipeline's
// one-run-at-a-time guard is what serializes access to it.
type Dispatcher struct {
	factories Factories

	system    SystemController
	browser   BrowserController
	messaging MessagingController
	files     FileController
}

func New(factories Factories) *Dispatcher {
	return &Dispatcher{factories: factories}
}

type route struct {
	group  Group
	invoke func(d *Dispatcher, ctx context.Context, step plan.Step) (bool, string, error)
}

// routes is the fixed action routing table. An action missing from it is
// reported as not_implemented and halts the plan.
var routes = map[plan.Action]route{
	plan.ActionOpenApp: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.OpenApp(ctx, s.Target)
		return ok, "", err
	}},
	plan.ActionCloseApp: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.CloseApp(ctx, s.Target)
		return ok, "", err
	}},
	plan.ActionSwitchWindow: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.SwitchWindow(ctx, s.Target)
		return ok, "", err
	}},
	plan.ActionTypeText: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.TypeText(ctx, s.Value)
		return ok, "", err
	}},
	plan.ActionMouseClick: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.MouseClick(ctx)
		return ok, "", err
	}},
	plan.ActionVolumeControl: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.ControlVolume(ctx, strings.ToLower(s.Target), parseAmount(s.Value))
		return ok, "", err
	}},
	plan.ActionBrightnessControl: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.ControlBrightness(ctx, strings.ToLower(s.Target), parseAmount(s.Value))
		return ok, "", err
	}},
	plan.ActionSystemShutdown: {GroupSystem, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.systemHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.Shutdown(ctx)
		return ok, "", err
	}},
	plan.ActionSearchBrowser: {GroupBrowser, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.browserHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.OpenURL(ctx, s.Target)
		if !ok || err != nil {
			return ok, "", err
		}
		// Best effort: a summary of the opened page makes the spoken
		// response useful, but its absence is not a step failure.
		summary, serr := h.PageSummary(ctx)
		if serr != nil {
			log.Printf("Dispatcher: page summary unavailable: %v", serr)
			summary = ""
		}
		return true, summary, nil
	}},
	plan.ActionWhatsAppMessage: {GroupMessaging, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.messagingHandler()
		if err != nil {
			return false, "", err
		}
		ok, err := h.SendMessage(ctx, s.Target, s.Value)
		return ok, "", err
	}},
	plan.ActionSearchFile: {GroupFiles, func(d *Dispatcher, ctx context.Context, s plan.Step) (bool, string, error) {
		h, err := d.filesHandler()
		if err != nil {
			return false, "", err
		}
		found, err := h.SearchFile(ctx, s.Target)
		if err != nil {
			return false, "", err
		}
		if found == "" {
			return false, "no matching file found", nil
		}
		return true, found, nil
	}},
}

// Execute runs the plan's steps in order and returns one report entry per
// attempted step. Execution stops at the first non-success; already
// performed side effects are never rolled back.
func (d *Dispatcher) Execute(ctx context.Context, p plan.Plan) plan.Report {
	if !p.Valid() {
		return plan.Report{{Index: 1, Status: plan.StatusError, Message: "invalid plan structure"}}
	}

	var report plan.Report
	for i, step := range p.Steps {
		index := i + 1

		if err := ctx.Err(); err != nil {
			report = append(report, plan.StepResult{
				Index: index, Action: step.Action,
				Status: plan.StatusError, Message: "execution cancelled",
			})
			break
		}

		r, known := routes[step.Action]
		if !known {
			log.Printf("Dispatcher: no handler for action: %s", step.Action)
			report = append(report, plan.StepResult{
				Index: index, Action: step.Action, Status: plan.StatusNotImplemented,
			})
			break
		}

		log.Printf("Dispatcher: routing step %d (%s) to %s", index, step.Action, r.group)

		ok, detail, err := r.invoke(d, ctx, step)
		if err != nil {
			report = append(report, plan.StepResult{
				Index: index, Action: step.Action,
				Status: plan.StatusError, Message: err.Error(),
			})
			break
		}
		if !ok {
			report = append(report, plan.StepResult{
				Index: index, Action: step.Action,
				Status: plan.StatusFailed, Message: detail,
			})
			break
		}
		report = append(report, plan.StepResult{
			Index: index, Action: step.Action,
			Status: plan.StatusSuccess, Message: detail,
		})
	}

	return report
}

func (d *Dispatcher) systemHandler() (SystemController, error) {
	if d.system != nil {
		return d.system, nil
	}
	if d.factories.System == nil {
		return nil, errors.New("system capability is not configured")
	}
	h, err := d.factories.System()
	if err != nil {
		return nil, fmt.Errorf("init system handler: %w", err)
	}
	d.system = h
	return h, nil
}

func (d *Dispatcher) browserHandler() (BrowserController, error) {
	if d.browser != nil {
		return d.browser, nil
	}
	if d.factories.Browser == nil {
		return nil, errors.New("browser capability is not configured")
	}
	h, err := d.factories.Browser()
	if err != nil {
		return nil, fmt.Errorf("init browser handler: %w", err)
	}
	d.browser = h
	return h, nil
}

func (d *Dispatcher) messagingHandler() (MessagingController, error) {
	if d.messaging != nil {
		return d.messaging, nil
	}
	if d.factories.Messaging == nil {
		return nil, errors.New("messaging capability is not configured")
	}
	h, err := d.factories.Messaging()
	if err != nil {
		return nil, fmt.Errorf("init messaging handler: %w", err)
	}
	d.messaging = h
	return h, nil
}

func (d *Dispatcher) filesHandler() (FileController, error) {
	if d.files != nil {
		return d.files, nil
	}
	if d.factories.Files == nil {
		return nil, errors.New("file search capability is not configured")
	}
	h, err := d.factories.Files()
	if err != nil {
		return nil, fmt.Errorf("init file handler: %w", err)
	}
	d.files = h
	return h, nil
}

// parseAmount extracts a repeat count from a step value. Unparseable input
// defaults to 1; the result is clamped to keep a bad value from hammering
// the hardware keys.
func parseAmount(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 1
	}
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
