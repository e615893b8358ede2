package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/astralabs/astra/internal/plan"
	"github.com/tmc/langchaingo/llms"
)

const systemPrompt = "You are Astra, a desktop voice assistant. " +
	"Your job is to convert user requests into a valid JSON plan. " +
	"SCHEMA: {'intent': str, 'steps': [{'action': str, 'target': str, 'value': str}]}. " +
	"RULES: 1. ALWAYS return valid JSON. 2. NEVER return any text or explanation outside the JSON. " +
	"3. If a command is harmful, illegal, or unsafe (e.g., deleting system files, hacking), " +
	"return {'intent': 'blocked', 'steps': []}. " +
	"4. Multi-step support is required if the user asks for multiple things. " +
	"AVAILABLE ACTIONS: open_app, close_app, switch_window, type_text, mouse_click, search_browser, " +
	"volume_control, brightness_control, system_shutdown, whatsapp_message, search_file."

// Options tunes the resolver. Zero values select the defaults.
type Options struct {
	MaxExchanges int           // rolling window size, in exchanges
	Timeout      time.Duration // per-attempt request timeout
	Retries      int           // attempts after the first, timeouts only
	Backoff      time.Duration // fixed delay between attempts
}

func (o Options) withDefaults() Options {
	if o.MaxExchanges <= 0 {
		o.MaxExchanges = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = 2
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// Resolver converts free-form utterances into structured plans via an LLM.
// It is not safe for concurrent use; the pipeline serializes calls.
type Resolver struct {
	model  llms.Model
	opts   Options
	window []llms.MessageContent
}

func NewResolver(model llms.Model, opts Options) *Resolver {
	return &Resolver{
		model: model,
		opts:  opts.withDefaults(),
	}
}

// Resolve turns an utterance into a Plan. It never returns an error: every
// failure mode is expressed as a Plan with a reserved intent, so downstream
// code can rely on the shape unconditionally.
func (r *Resolver) Resolve(ctx context.Context, utterance string) plan.Plan {
	if strings.TrimSpace(utterance) == "" {
		return plan.Plan{Intent: plan.IntentEmpty, Steps: []plan.Step{}}
	}

	r.window = append(r.window, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(utterance)},
	})
	r.trimWindow()

	messages := make([]llms.MessageContent, 0, len(r.window)+1)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
	})
	messages = append(messages, r.window...)

	raw, err := r.generate(ctx, messages)
	if err != nil {
		log.Printf("Resolver: LLM request failed: %v", err)
		return plan.Plan{Intent: plan.IntentError, Steps: []plan.Step{}, Message: err.Error()}
	}

	parsed, err := parsePlan(raw)
	if err != nil {
		log.Printf("Resolver: failed to parse JSON from LLM response: %v", err)
		return plan.Plan{Intent: plan.IntentError, Steps: []plan.Step{}, Message: "invalid JSON response from AI"}
	}

	// Store the raw reply so the model can maintain state across turns.
	r.window = append(r.window, llms.MessageContent{
		Role:  llms.ChatMessageTypeAI,
		Parts: []llms.ContentPart{llms.TextPart(raw)},
	})
	r.trimWindow()

	return parsed
}

// ClearContext resets the rolling conversation window.
func (r *Resolver) ClearContext() {
	r.window = nil
}

// generate runs the bounded-attempt loop. Timeouts are retried with a fixed
// backoff; a refused connection means the service is down, so it fails fast.
func (r *Resolver) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	var lastErr error
	attempts := r.opts.Retries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.opts.Backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		resp, err := r.model.GenerateContent(callCtx, messages, llms.WithJSONMode())
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("empty response from model")
			}
			return resp.Choices[0].Content, nil
		}

		lastErr = err
		switch classify(err) {
		case failureRetryable:
			log.Printf("Resolver: attempt %d/%d timed out: %v", attempt+1, attempts, err)
		case failureFatal:
			return "", fmt.Errorf("reasoning service unreachable: %w", err)
		}
	}

	return "", fmt.Errorf("reasoning service failed after %d attempts: %w", attempts, lastErr)
}

type failureKind int

const (
	failureRetryable failureKind = iota
	failureFatal
)

// classify sorts a transport error into retryable (timeout) or fatal
// (service down, or anything we do not recognize as transient).
func classify(err error) failureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureRetryable
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return failureFatal
	}
	return failureFatal
}

func (r *Resolver) trimWindow() {
	max := r.opts.MaxExchanges * 2
	if len(r.window) > max {
		r.window = r.window[len(r.window)-max:]
	}
}

// parsePlan decodes the model reply, tolerating code-fence wrapping and a
// missing or malformed steps array. Anything beyond that is an error.
func parsePlan(raw string) (plan.Plan, error) {
	decoded, err := decode(raw)
	if err != nil {
		cleaned := stripFences(raw)
		if cleaned == raw {
			return plan.Plan{}, err
		}
		decoded, err = decode(cleaned)
		if err != nil {
			return plan.Plan{}, err
		}
	}
	return decoded, nil
}

func decode(raw string) (plan.Plan, error) {
	var outer struct {
		Intent  string          `json:"intent"`
		Steps   json.RawMessage `json:"steps"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return plan.Plan{}, err
	}

	p := plan.Plan{Intent: outer.Intent, Steps: []plan.Step{}, Message: outer.Message}
	if p.Intent == "" {
		p.Intent = plan.IntentUnknown
	}
	if len(outer.Steps) > 0 {
		var steps []plan.Step
		if err := json.Unmarshal(outer.Steps, &steps); err == nil && steps != nil {
			p.Steps = steps
		}
	}
	return p, nil
}

// stripFences removes surrounding markdown code-fence artifacts. This is a
// best-effort recovery pass, not a guarantee.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(s, "`"))
}
