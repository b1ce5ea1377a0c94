package fetcher

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// fetchJS runs the request from inside the page so it carries the browser's own
// headers and cookies.
const fetchJS = `(u) => fetch(u, {credentials: "include"}).then(async (r) => ({status: r.status, body: await r.text()}))`

// BrowserTransport drives a headless Chrome through rod with the stealth
// patches applied, for when the API turns away non-browser clients.
// The API origin is loaded once; each Get is a single in-page fetch.
type BrowserTransport struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewBrowserTransport launches the browser, applies userAgent when set and
// opens the API origin. A system Chrome is preferred over a downloaded one.
func NewBrowserTransport(baseURL, userAgent string) (*BrowserTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	l := launcher.New().
		Leakless(false).
		Headless(true).
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows")
	if bin, ok := launcher.LookPath(); ok {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	t := &BrowserTransport{launcher: l, browser: browser}
	if err := t.openOrigin(u.Scheme+"://"+u.Host+"/", userAgent); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

func (t *BrowserTransport) openOrigin(origin, userAgent string) error {
	page, err := stealth.Page(t.browser)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if userAgent != "" {
		if err := (proto.NetworkSetUserAgentOverride{UserAgent: userAgent}).Call(page); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := page.Navigate(origin); err != nil {
		return fmt.Errorf("navigate %s: %w", origin, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	t.page = page
	return nil
}

func (t *BrowserTransport) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	res, err := t.page.Context(ctx).Eval(fetchJS, rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("in-page fetch: %w", err)
	}
	return res.Value.Get("status").Int(), []byte(res.Value.Get("body").Str()), nil
}

func (t *BrowserTransport) Close() error {
	err := t.browser.Close()
	t.launcher.Cleanup()
	return err
}
