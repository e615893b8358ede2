package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/astralabs/astra/internal/governance"
	"github.com/astralabs/astra/internal/observability"
	"github.com/astralabs/astra/internal/plan"
	"github.com/astralabs/astra/internal/store"
)

// Resolver converts an utterance into a structured plan.
type Resolver interface {
	Resolve(ctx context.Context, utterance string) plan.Plan
}

// Validator decides whether a plan may execute.
type Validator interface {
	Validate(p plan.Plan) governance.Verdict
}

// Executor runs a validated plan and reports per-step outcomes.
type Executor interface {
	Execute(ctx context.Context, p plan.Plan) plan.Report
}

// Auditor records completed pipeline runs.
type Auditor interface {
	Record(utterance, intent string, allowed bool, reason string, report plan.Report) error
}

// ConfirmFunc asks the user to approve a sensitive plan before it runs.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// repeatPhrases trigger re-execution of the last plan without a resolver
// round trip.
var repeatPhrases = map[string]bool{
	"do it again":   true,
	"again":         true,
	"repeat":        true,
	"repeat that":   true,
	"do that again": true,
}

// Pipeline wires resolver, guard, dispatcher and context store into the
// fixed per-utterance sequence. One utterance is processed to completion at
// a time: a second request arriving mid-run is refused, never interleaved.
type Pipeline struct {
	Resolver   Resolver
	Guard      Validator
	Dispatcher Executor
	Memory     *store.Memory
	Audit      Auditor
	Events     *observability.Logger

	busy atomic.Bool
}

// Handle processes one utterance end to end and returns the response text
// to speak. It never panics outward: unexpected faults become an apology so
// the process can return to listening.
func (p *Pipeline) Handle(ctx context.Context, utterance string, confirm ConfirmFunc) (response string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Pipeline: recovered from panic: %v", r)
			response = "Something went wrong while processing your request."
		}
	}()

	if !p.busy.CompareAndSwap(false, true) {
		return "I'm still working on your previous request."
	}
	defer p.busy.Store(false)

	observability.SetStatus(observability.StateResolving, utterance)
	defer observability.SetStatus(observability.StateIdle, "")

	resolved := p.resolve(ctx, utterance)
	if p.Events != nil {
		p.Events.LogResolve(utterance, resolved.Intent, len(resolved.Steps))
	}

	switch resolved.Intent {
	case plan.IntentEmpty:
		return "I'm sorry, I didn't catch that."
	case plan.IntentError:
		msg := resolved.Message
		if msg == "" {
			msg = "I couldn't reach my reasoning service."
		}
		return fmt.Sprintf("I ran into a problem: %s", msg)
	}

	verdict := p.Guard.Validate(resolved)
	if p.Events != nil {
		p.Events.LogPolicyCheck(resolved.Intent, string(verdict.Effect), verdict.Reason)
	}

	if !verdict.Allowed() {
		log.Printf("Pipeline: safety block: %s", verdict.Reason)
		p.audit(utterance, resolved.Intent, false, verdict.Reason, nil)
		return fmt.Sprintf("I'm sorry, I cannot do that. %s", verdict.Reason)
	}

	if verdict.NeedsConfirmation {
		if !p.confirmed(ctx, confirm) {
			p.audit(utterance, resolved.Intent, true, "declined by user", nil)
			return "Okay, I won't do that."
		}
	}

	observability.SetStatus(observability.StateExecuting, resolved.Intent)
	report := p.Dispatcher.Execute(ctx, resolved)
	if p.Events != nil {
		p.Events.LogReport(resolved.Intent, report)
	}

	response = composeResponse(report)

	p.Memory.RecordTurn(utterance, response)
	p.Memory.SetLastPlan(resolved)
	p.audit(utterance, resolved.Intent, true, verdict.Reason, report)

	return response
}

// resolve translates the utterance, short-circuiting repeat phrases to the
// stored last plan.
func (p *Pipeline) resolve(ctx context.Context, utterance string) plan.Plan {
	if repeatPhrases[strings.ToLower(strings.TrimSpace(utterance))] {
		if last, ok := p.Memory.LastPlan(); ok {
			log.Printf("Pipeline: repeating last plan (%s)", last.Intent)
			return last
		}
		return plan.Plan{
			Intent:  plan.IntentError,
			Steps:   []plan.Step{},
			Message: "there is nothing to repeat yet",
		}
	}
	return p.Resolver.Resolve(ctx, utterance)
}

func (p *Pipeline) confirmed(ctx context.Context, confirm ConfirmFunc) bool {
	if confirm == nil {
		log.Printf("Pipeline: sensitive plan with no confirmation channel; refusing")
		return false
	}
	ok, err := confirm(ctx, "This action requires confirmation. Are you sure?")
	if err != nil {
		log.Printf("Pipeline: confirmation failed: %v", err)
		return false
	}
	return ok
}

func (p *Pipeline) audit(utterance, intent string, allowed bool, reason string, report plan.Report) {
	if p.Audit == nil {
		return
	}
	if err := p.Audit.Record(utterance, intent, allowed, reason, report); err != nil {
		log.Printf("Pipeline: audit record failed: %v", err)
	}
}

// composeResponse builds the spoken summary from the execution report.
func composeResponse(report plan.Report) string {
	if len(report) == 0 {
		return "There was nothing to do."
	}
	if report.AllSucceeded() {
		detail := report[len(report)-1].Message
		if detail != "" {
			return fmt.Sprintf("Task completed successfully. %s", detail)
		}
		return "Task completed successfully."
	}
	return fmt.Sprintf("I encountered an issue with: %s.", strings.Join(report.FailedActions(), ", "))
}
