package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"vagasbot/internal/opportunity"

	"github.com/gocolly/colly/v2"
)

// remoteLocationRe keeps only postings open to the whole country.
var remoteLocationRe = regexp.MustCompile(`(?i)(Em qualquer lugar|Brasil)`)

const adsenseSnippet = "(adsbygoogle = window.adsbygoogle || []).push({});"

// QueroWorkarFetcher scrapes the queroworkar.com.br job listing.
type QueroWorkarFetcher struct {
	baseURL       string
	allowedHost   string
	skipDateCheck bool
	now           func() time.Time
}

func NewQueroWorkarFetcher(baseURL string, skipDateCheck bool) *QueroWorkarFetcher {
	f := &QueroWorkarFetcher{baseURL: strings.TrimSpace(baseURL), skipDateCheck: skipDateCheck, now: time.Now}
	if f.baseURL == "" {
		f.baseURL = "http://queroworkar.com.br/blog/jobs/"
	}
	f.allowedHost = hostFromURL(f.baseURL)
	return f
}

func (f *QueroWorkarFetcher) Name() string { return "queroworkar" }

func (f *QueroWorkarFetcher) Fetch(ctx context.Context) ([]opportunity.RawPosting, error) {
	links, err := f.scrapeListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("queroworkar listing: %w", err)
	}

	out := make([]opportunity.RawPosting, 0, len(links))
	for _, link := range links {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		posting, err := f.scrapeDetail(ctx, link)
		if err != nil {
			continue
		}
		out = append(out, posting)
	}
	return out, nil
}

func (f *QueroWorkarFetcher) scrapeListing(ctx context.Context) ([]string, error) {
	c := f.newCollector()

	links := make([]string, 0)
	c.OnHTML(".loadmore-item", func(e *colly.HTMLElement) {
		place := strings.TrimSpace(e.ChildText(".job-location"))
		if place == "" || !remoteLocationRe.MatchString(place) {
			return
		}
		raw := e.ChildAttr(".job-date .entry-date", "datetime")
		if i := strings.IndexByte(raw, 'T'); i >= 0 {
			raw = raw[:i]
		}
		ts, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
		if err != nil || !postedToday(ts, f.now, f.skipDateCheck) {
			return
		}
		link := e.ChildAttr("a", "href")
		if link == "" {
			return
		}
		links = append(links, e.Request.AbsoluteURL(link))
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := c.Visit(f.baseURL); err != nil {
		return nil, err
	}
	c.Wait()
	if reqErr != nil {
		return nil, reqErr
	}
	return links, nil
}

func (f *QueroWorkarFetcher) scrapeDetail(ctx context.Context, link string) (opportunity.RawPosting, error) {
	c := f.newCollector()

	var posting opportunity.RawPosting
	c.OnHTML(".page-title", func(e *colly.HTMLElement) {
		if posting.Title == "" {
			posting.Title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML(".job-desc", func(e *colly.HTMLElement) {
		if posting.Description != "" {
			return
		}
		html, err := e.DOM.Html()
		if err != nil {
			return
		}
		posting.Description = strings.ReplaceAll(html, adsenseSnippet, "")
	})
	c.OnHTML(".company-title", func(e *colly.HTMLElement) {
		if posting.Company == "" {
			posting.Company = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML(".job-location", func(e *colly.HTMLElement) {
		if posting.Location == "" {
			posting.Location = strings.TrimSpace(e.Text)
		}
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if ctx.Err() != nil {
		return opportunity.RawPosting{}, ctx.Err()
	}
	if err := c.Visit(link); err != nil {
		return opportunity.RawPosting{}, err
	}
	c.Wait()
	if reqErr != nil {
		return opportunity.RawPosting{}, reqErr
	}
	if posting.Title == "" {
		return opportunity.RawPosting{}, fmt.Errorf("no title at %s", link)
	}

	posting.Description += "\n\n*Como se candidatar:* " + link
	return posting, nil
}

func (f *QueroWorkarFetcher) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.AllowedDomains(f.allowedHost),
	)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2, Delay: 400 * time.Millisecond})
	c.OnRequest(func(r *colly.Request) {
		for k, v := range crawlerHeaders() {
			r.Headers.Set(k, v)
		}
	})
	return c
}
