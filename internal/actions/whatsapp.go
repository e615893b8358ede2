package actions

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// WhatsApp Web selectors. These track the web client's DOM and will need
// updating when WhatsApp ships a redesign.
const (
	waURL          = "https://web.whatsapp.com"
	waSidebar      = "#side"
	waSearchInput  = `div[contenteditable="true"][data-tab="3"]`
	waMessageInput = `div[contenteditable="true"][data-tab="10"]`
)

// WhatsApp sends messages by driving WhatsApp Web in a dedicated Chrome
// profile. The profile directory keeps the QR-code login across runs; the
// first run requires a manual scan.
type WhatsApp struct {
	mu            sync.Mutex
	profileDir    string
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

// NewWhatsApp creates the messaging handler. profileDir defaults to
// data/cache/whatsapp_session.
func NewWhatsApp(profileDir string) *WhatsApp {
	if profileDir == "" {
		profileDir = filepath.Join("data", "cache", "whatsapp_session")
	}
	return &WhatsApp{profileDir: profileDir}
}

func (w *WhatsApp) initBrowser() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.browserCtx != nil {
		select {
		case <-w.browserCtx.Done():
			w.cleanup()
		default:
			return nil
		}
	}

	if err := os.MkdirAll(w.profileDir, 0755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", false),
		chromedp.UserDataDir(w.profileDir),
		chromedp.Flag("no-first-run", true),
	)

	w.allocCtx, w.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	w.browserCtx, w.browserCancel = chromedp.NewContext(w.allocCtx)

	return chromedp.Run(w.browserCtx)
}

func (w *WhatsApp) cleanup() {
	if w.browserCancel != nil {
		w.browserCancel()
	}
	if w.allocCancel != nil {
		w.allocCancel()
	}
	w.browserCtx = nil
	w.allocCtx = nil
}

// Close shuts the session down.
func (w *WhatsApp) Close() {
	w.mu.Lock()
	w.cleanup()
	w.mu.Unlock()
}

// SendMessage opens the chat with the named contact and sends the body.
// It waits for the sidebar to appear, which only happens once logged in.
func (w *WhatsApp) SendMessage(ctx context.Context, contact, body string) (bool, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" || strings.TrimSpace(body) == "" {
		return false, nil
	}

	if err := w.initBrowser(); err != nil {
		return false, fmt.Errorf("failed to initialize browser: %v", err)
	}

	actionCtx, cancel := context.WithTimeout(w.browserCtx, 2*time.Minute)
	defer cancel()

	log.Printf("WhatsApp: waiting for login")
	err := chromedp.Run(actionCtx,
		chromedp.Navigate(waURL),
		chromedp.WaitVisible(waSidebar, chromedp.ByQuery),
	)
	if err != nil {
		return false, fmt.Errorf("whatsapp login not ready (scan the QR code?): %v", err)
	}

	contactSelector := fmt.Sprintf(`span[title=%q]`, contact)

	log.Printf("WhatsApp: sending message to %s", contact)
	err = chromedp.Run(actionCtx,
		chromedp.Click(waSearchInput, chromedp.ByQuery),
		chromedp.SendKeys(waSearchInput, contact, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Click(contactSelector, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.SendKeys(waMessageInput, body, chromedp.ByQuery),
		chromedp.SendKeys(waMessageInput, kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
	)
	if err != nil {
		log.Printf("WhatsApp: send failed: %v", err)
		return false, nil
	}

	return true, nil
}
