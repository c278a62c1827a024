package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

var ErrNoDocument = errors.New("no html document in response")

// Fetcher loads a listing page and returns its <html> root.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Selection, error)
}

// CollyFetcher fetches server-rendered pages over plain HTTP.
type CollyFetcher struct {
	Timeout time.Duration
	Delay   time.Duration
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{Timeout: 25 * time.Second, Delay: 400 * time.Millisecond}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(f.Timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: f.Delay})

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var root *goquery.Selection
	c.OnHTML("html", func(e *colly.HTMLElement) {
		root = e.DOM
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = fmt.Errorf("fetch %s: status=%d: %w", url, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()

	if reqErr != nil {
		return nil, reqErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDocument, url)
	}
	return root, nil
}

// HeadlessFetcher renders the page in headless Chrome first, for boards that
// build their listing client-side.
type HeadlessFetcher struct {
	Timeout time.Duration
	// Settle is how long to wait after the body is ready for scripts to
	// finish rendering.
	Settle time.Duration
}

func NewHeadlessFetcher() *HeadlessFetcher {
	return &HeadlessFetcher{Timeout: 45 * time.Second, Settle: 1500 * time.Millisecond}
}

func (f *HeadlessFetcher) Fetch(ctx context.Context, url string) (*goquery.Selection, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, f.Timeout)
	defer reqCancel()

	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return parseDocument(html)
}

func parseDocument(html string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return doc.Selection, nil
}
