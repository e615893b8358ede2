package actions

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Browser drives a headed Chrome session for search and navigation. The
// session is started lazily on first use and reused until Close.
type Browser struct {
	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc

	currentURL string
}

func NewBrowser() *Browser {
	return &Browser{}
}

func (b *Browser) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", false),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *Browser) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// Close shuts the browser session down.
func (b *Browser) Close() {
	b.mu.Lock()
	b.cleanup()
	b.mu.Unlock()
}

// OpenURL navigates to the given address. Plain text that is not a URL is
// treated as a web search query.
func (b *Browser) OpenURL(ctx context.Context, urlOrQuery string) (bool, error) {
	target := strings.TrimSpace(urlOrQuery)
	if target == "" {
		return false, nil
	}
	if !strings.HasPrefix(target, "http") {
		target = "https://www.google.com/search?q=" + url.QueryEscape(target)
	}

	if err := b.initBrowser(); err != nil {
		return false, fmt.Errorf("failed to initialize browser: %v", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	log.Printf("Browser: navigating to %s", target)
	if err := chromedp.Run(actionCtx, chromedp.Navigate(target)); err != nil {
		log.Printf("Browser: navigation failed: %v", err)
		return false, nil
	}
	b.currentURL = target
	return true, nil
}

// PageSummary extracts the readable content of the current page and
// condenses it into a short, speakable snippet.
func (b *Browser) PageSummary(ctx context.Context) (string, error) {
	if b.browserCtx == nil || b.currentURL == "" {
		return "", fmt.Errorf("no page is open")
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 30*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(actionCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %v", err)
	}

	pageURL, err := url.Parse(b.currentURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %v", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %v", err)
	}

	text := bluemonday.StrictPolicy().Sanitize(article.TextContent)
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 280 {
		text = text[:280] + "..."
	}

	if article.Title != "" {
		return fmt.Sprintf("%s. %s", article.Title, text), nil
	}
	return text, nil
}
