package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astralabs/astra/internal/actions"
	"github.com/astralabs/astra/internal/agent"
	"github.com/astralabs/astra/internal/brain"
	"github.com/astralabs/astra/internal/dispatch"
	"github.com/astralabs/astra/internal/gateway"
	"github.com/astralabs/astra/internal/governance"
	"github.com/astralabs/astra/internal/observability"
	"github.com/astralabs/astra/internal/store"
	"github.com/astralabs/astra/pkg/config"
	"github.com/tmc/langchaingo/llms/ollama"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.json")

	// Policy rules: compiled-in defaults, optionally overridden from file.
	rules := governance.DefaultRuleset()
	if cfg.Policy.Path != "" {
		loaded, err := governance.LoadRuleset(cfg.Policy.Path)
		if err != nil {
			log.Fatalf("failed to load policy rules: %v", err)
		}
		rules = loaded
	}
	guard := governance.NewGuard(rules)

	// Reasoning service client.
	model, err := ollama.New(
		ollama.WithServerURL(cfg.Ollama.Host),
		ollama.WithModel(cfg.Ollama.Model),
	)
	if err != nil {
		log.Fatal(err)
	}
	resolver := brain.NewResolver(model, brain.Options{
		Timeout: time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second,
		Retries: cfg.Ollama.Retries,
	})

	// Capability handlers are constructed lazily by the dispatcher; a run
	// that never touches the browser never pays for starting one.
	dispatcher := dispatch.New(dispatch.Factories{
		System: func() (dispatch.SystemController, error) {
			return actions.NewSystem(), nil
		},
		Browser: func() (dispatch.BrowserController, error) {
			return actions.NewBrowser(), nil
		},
		Messaging: func() (dispatch.MessagingController, error) {
			return actions.NewWhatsApp(""), nil
		},
		Files: func() (dispatch.FileController, error) {
			return actions.NewFiles(cfg.App.Workspace), nil
		},
	})

	memory := store.NewMemory(cfg.Memory.MaxHistory)

	audit, err := store.NewAuditLog(cfg.Memory.AuditPath)
	if err != nil {
		log.Fatal(err)
	}
	defer audit.Close()

	events := observability.NewLogger()

	pipeline := &agent.Pipeline{
		Resolver:   resolver,
		Guard:      guard,
		Dispatcher: dispatcher,
		Memory:     memory,
		Audit:      audit,
		Events:     events,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Remote gateways, if configured.
	if tgCfg, ok := cfg.GetGateway("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, pipeline)
		if err != nil {
			log.Fatal(err)
		}
		go func() {
			if err := tg.Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("telegram gateway stopped: %v", err)
			}
		}()
	}
	if dcCfg, ok := cfg.GetGateway("discord"); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, pipeline)
		if err != nil {
			log.Fatal(err)
		}
		go func() {
			if err := dc.Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("discord gateway stopped: %v", err)
			}
		}()
	}

	// Live resource dashboard (1-second updates).
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				events.LogHeartbeat()
			}
		}
	}()

	// The console is the local transcript source; it blocks until the
	// user exits or the context is cancelled.
	console := gateway.NewConsole(pipeline)
	go func() {
		if err := console.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("console gateway stopped: %v", err)
		}
		stop()
	}()

	<-ctx.Done()

	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("Astra is offline. Goodbye.")
}
