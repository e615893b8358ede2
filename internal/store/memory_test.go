package store

import (
	"fmt"
	"testing"

	"github.com/astralabs/astra/internal/plan"
)

func TestMemory_EvictsOldestTurn(t *testing.T) {
	max := 5
	m := NewMemory(max)

	for i := 0; i < max+1; i++ {
		m.RecordTurn(fmt.Sprintf("utterance %d", i), "ok")
	}

	if m.Len() != max {
		t.Fatalf("len = %d, want %d", m.Len(), max)
	}
	history := m.History()
	if history[0].Utterance != "utterance 1" {
		t.Errorf("oldest turn should have been evicted, first is %q", history[0].Utterance)
	}
	if history[len(history)-1].Utterance != fmt.Sprintf("utterance %d", max) {
		t.Errorf("newest turn missing, last is %q", history[len(history)-1].Utterance)
	}
}

func TestMemory_LastPlan(t *testing.T) {
	m := NewMemory(10)

	if _, ok := m.LastPlan(); ok {
		t.Fatal("fresh memory should have no last plan")
	}

	p := plan.Plan{
		Intent: "open_app",
		Steps:  []plan.Step{{Action: plan.ActionOpenApp, Target: "notepad"}},
	}
	m.SetLastPlan(p)

	got, ok := m.LastPlan()
	if !ok {
		t.Fatal("last plan missing after SetLastPlan")
	}
	if got.Intent != "open_app" || len(got.Steps) != 1 {
		t.Errorf("unexpected last plan: %+v", got)
	}

	// Overwritten on each store.
	m.SetLastPlan(plan.Plan{Intent: "search_browser", Steps: []plan.Step{{Action: plan.ActionSearchBrowser, Target: "news"}}})
	got, _ = m.LastPlan()
	if got.Intent != "search_browser" {
		t.Errorf("last plan not overwritten: %+v", got)
	}
}

func TestMemory_SetLastPlanIgnoresInvalid(t *testing.T) {
	m := NewMemory(10)
	valid := plan.Plan{Intent: "open_app", Steps: []plan.Step{{Action: plan.ActionOpenApp, Target: "vlc"}}}
	m.SetLastPlan(valid)

	m.SetLastPlan(plan.Plan{}) // no intent: a no-op

	got, ok := m.LastPlan()
	if !ok || got.Intent != "open_app" {
		t.Errorf("invalid plan overwrote the slot: %+v ok=%v", got, ok)
	}
}

func TestMemory_Clear(t *testing.T) {
	m := NewMemory(10)
	m.RecordTurn("hi", "hello")
	m.SetLastPlan(plan.Plan{Intent: "open_app", Steps: []plan.Step{{Action: plan.ActionOpenApp, Target: "vlc"}}})

	m.Clear()

	if m.Len() != 0 {
		t.Error("history not cleared")
	}
	if _, ok := m.LastPlan(); ok {
		t.Error("last plan not cleared")
	}
}
