package brain

import (
	"context"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/astralabs/astra/internal/plan"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel scripts a sequence of replies/errors for GenerateContent.
type fakeModel struct {
	replies []string
	errs    []error
	calls   int

	lastMessages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastMessages = messages

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if len(f.replies) > 0 {
		if i >= len(f.replies) {
			reply = f.replies[len(f.replies)-1]
		} else {
			reply = f.replies[i]
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func fastOptions() Options {
	return Options{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond}
}

func TestResolver_EmptyUtterance(t *testing.T) {
	model := &fakeModel{}
	r := NewResolver(model, fastOptions())

	for _, input := range []string{"", "   ", "\t\n"} {
		p := r.Resolve(context.Background(), input)
		if p.Intent != plan.IntentEmpty {
			t.Errorf("input %q: intent = %q, want empty", input, p.Intent)
		}
		if len(p.Steps) != 0 {
			t.Errorf("input %q: steps should be empty", input)
		}
	}
	if model.calls != 0 {
		t.Errorf("empty input must not reach the model, got %d calls", model.calls)
	}
}

func TestResolver_ParsesValidReply(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"intent": "open_app", "steps": [{"action": "open_app", "target": "notepad", "value": ""}]}`,
	}}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "open notepad")
	if p.Intent != "open_app" {
		t.Errorf("intent = %q", p.Intent)
	}
	if len(p.Steps) != 1 || p.Steps[0].Action != plan.ActionOpenApp || p.Steps[0].Target != "notepad" {
		t.Errorf("unexpected steps: %+v", p.Steps)
	}
}

func TestResolver_RecoversFencedJSON(t *testing.T) {
	model := &fakeModel{replies: []string{
		"```json\n{\"intent\": \"open_app\", \"steps\": [{\"action\": \"open_app\", \"target\": \"vlc\", \"value\": \"\"}]}\n```",
	}}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "open vlc")
	if p.Intent != "open_app" {
		t.Fatalf("fenced JSON not recovered, intent = %q (message %q)", p.Intent, p.Message)
	}
	if len(p.Steps) != 1 || p.Steps[0].Target != "vlc" {
		t.Errorf("unexpected steps: %+v", p.Steps)
	}
}

func TestResolver_GarbageReplyIsError(t *testing.T) {
	model := &fakeModel{replies: []string{"I'd be happy to help with that!"}}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "open notepad")
	if p.Intent != plan.IntentError {
		t.Errorf("intent = %q, want error", p.Intent)
	}
	if len(p.Steps) != 0 {
		t.Errorf("error plan must have no steps: %+v", p.Steps)
	}
}

func TestResolver_NormalizesMissingFields(t *testing.T) {
	model := &fakeModel{replies: []string{`{"steps": "not a list"}`}}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "hello")
	if p.Intent != plan.IntentUnknown {
		t.Errorf("missing intent should default to unknown, got %q", p.Intent)
	}
	if p.Steps == nil || len(p.Steps) != 0 {
		t.Errorf("malformed steps should normalize to empty, got %+v", p.Steps)
	}
}

func TestResolver_RetriesOnTimeout(t *testing.T) {
	model := &fakeModel{
		errs:    []error{context.DeadlineExceeded, nil},
		replies: []string{"", `{"intent": "open_app", "steps": []}`},
	}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "open notepad")
	if p.Intent != "open_app" {
		t.Errorf("retry did not recover, intent = %q (%s)", p.Intent, p.Message)
	}
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}
}

func TestResolver_ExhaustedRetriesIsError(t *testing.T) {
	model := &fakeModel{
		errs: []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded},
	}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "open notepad")
	if p.Intent != plan.IntentError {
		t.Errorf("intent = %q, want error", p.Intent)
	}
	if model.calls != 3 {
		t.Errorf("model called %d times, want 3 (1 + 2 retries)", model.calls)
	}
}

func TestResolver_ConnectionRefusedFailsFast(t *testing.T) {
	refused := &net.OpError{
		Op:  "dial",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}
	model := &fakeModel{errs: []error{refused, refused, refused}}
	r := NewResolver(model, fastOptions())

	p := r.Resolve(context.Background(), "open notepad")
	if p.Intent != plan.IntentError {
		t.Errorf("intent = %q, want error", p.Intent)
	}
	if model.calls != 1 {
		t.Errorf("connection refusal must not be retried, got %d calls", model.calls)
	}
}

func TestResolver_KeepsConversationWindow(t *testing.T) {
	model := &fakeModel{replies: []string{`{"intent": "open_app", "steps": []}`}}
	r := NewResolver(model, fastOptions())

	r.Resolve(context.Background(), "open notepad")
	r.Resolve(context.Background(), "now close it")

	// system + (user, assistant, user): the first exchange is retained.
	if len(model.lastMessages) != 4 {
		t.Errorf("second call saw %d messages, want 4", len(model.lastMessages))
	}
	if model.lastMessages[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("first message role = %v, want system", model.lastMessages[0].Role)
	}

	r.ClearContext()
	r.Resolve(context.Background(), "open vlc")
	if len(model.lastMessages) != 2 {
		t.Errorf("after clear, call saw %d messages, want 2", len(model.lastMessages))
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"`{\"a\":1}`", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
