package store

import (
	"log"

	"github.com/astralabs/astra/internal/plan"
)

// ConversationTurn is one utterance/response pair.
type ConversationTurn struct {
	Utterance string
	Response  string
}

// Memory is the assistant's short-term context: a bounded conversation
// history plus the last executed plan, enabling follow-ups like
// "do it again". State lives for the process lifetime only.
//
// Memory is mutated only by the orchestrator after a pipeline run
// completes, so it needs no locking while runs are serialized.
type Memory struct {
	maxHistory int
	history    []ConversationTurn
	lastPlan   *plan.Plan
}

// NewMemory creates a memory buffer keeping at most maxHistory turns.
// A non-positive capacity falls back to 10.
func NewMemory(maxHistory int) *Memory {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Memory{maxHistory: maxHistory}
}

// RecordTurn appends an interaction, evicting the oldest once full.
func (m *Memory) RecordTurn(utterance, response string) {
	m.history = append(m.history, ConversationTurn{Utterance: utterance, Response: response})
	if len(m.history) > m.maxHistory {
		m.history = m.history[1:]
	}
}

// SetLastPlan stores the most recent validated plan. Structurally invalid
// input is ignored so a bad resolver reply can never poison the slot.
func (m *Memory) SetLastPlan(p plan.Plan) {
	if !p.Valid() {
		log.Printf("Memory: ignoring structurally invalid plan")
		return
	}
	copied := p
	copied.Steps = append([]plan.Step(nil), p.Steps...)
	m.lastPlan = &copied
}

// LastPlan returns the previous plan, or false if none is stored.
func (m *Memory) LastPlan() (plan.Plan, bool) {
	if m.lastPlan == nil {
		return plan.Plan{}, false
	}
	return *m.lastPlan, true
}

// History returns the retained turns, oldest first.
func (m *Memory) History() []ConversationTurn {
	out := make([]ConversationTurn, len(m.history))
	copy(out, m.history)
	return out
}

// Len reports the number of retained turns.
func (m *Memory) Len() int {
	return len(m.history)
}

// Clear resets all short-term context.
func (m *Memory) Clear() {
	m.history = nil
	m.lastPlan = nil
}
