package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vagasbot/internal/opportunity"
	"vagasbot/internal/tags"

	"github.com/gocolly/colly/v2"
)

// ComoEQueTaLaFetcher scrapes the comoequetala.com.br job board.
type ComoEQueTaLaFetcher struct {
	baseURL       string
	allowedHost   string
	skipDateCheck bool
	now           func() time.Time
}

func NewComoEQueTaLaFetcher(baseURL string, skipDateCheck bool) *ComoEQueTaLaFetcher {
	f := &ComoEQueTaLaFetcher{baseURL: strings.TrimSpace(baseURL), skipDateCheck: skipDateCheck, now: time.Now}
	if f.baseURL == "" {
		f.baseURL = "https://comoequetala.com.br/vagas-e-jobs"
	}
	f.allowedHost = hostFromURL(f.baseURL)
	return f
}

func (f *ComoEQueTaLaFetcher) Name() string { return "comoequetala" }

type comoEQueTaLaItem struct {
	Link     string
	Company  string
	Location string
}

func (f *ComoEQueTaLaFetcher) Fetch(ctx context.Context) ([]opportunity.RawPosting, error) {
	items, err := f.scrapeListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("comoequetala listing: %w", err)
	}

	out := make([]opportunity.RawPosting, 0, len(items))
	for _, it := range items {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		posting, err := f.scrapeDetail(ctx, it)
		if err != nil {
			continue
		}
		out = append(out, posting)
	}
	return out, nil
}

func (f *ComoEQueTaLaFetcher) scrapeListing(ctx context.Context) ([]comoEQueTaLaItem, error) {
	c := f.newCollector()

	items := make([]comoEQueTaLaItem, 0)
	c.OnHTML(".uk-list.uk-list-space > li", func(e *colly.HTMLElement) {
		if !tags.Matches(e.Text) {
			return
		}
		ts, err := time.Parse(time.RFC3339, e.ChildAttr(`[itemprop="datePosted"]`, "content"))
		if err != nil {
			ts, err = time.Parse("2006-01-02", e.ChildAttr(`[itemprop="datePosted"]`, "content"))
		}
		if err != nil || !postedToday(ts, f.now, f.skipDateCheck) {
			return
		}
		link := e.ChildAttr(`[itemprop="url"]`, "content")
		if link == "" {
			return
		}
		items = append(items, comoEQueTaLaItem{
			Link:    e.Request.AbsoluteURL(link),
			Company: strings.TrimSpace(e.ChildText(".vaga_empresa")),
			Location: strings.TrimSpace(e.ChildText(`[itemprop="addressLocality"]`)) + "/" +
				strings.TrimSpace(e.ChildText(`[itemprop="addressRegion"]`)),
		})
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
	return items, nil
}

func (f *ComoEQueTaLaFetcher) scrapeDetail(ctx context.Context, it comoEQueTaLaItem) (opportunity.RawPosting, error) {
	c := f.newCollector()

	var title string
	var sections []string
	c.OnHTML(`[itemprop="title"], h3`, func(e *colly.HTMLElement) {
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML(`[itemprop="description"]`, func(e *colly.HTMLElement) {
		if html, err := e.DOM.Html(); err == nil {
			sections = append(sections, html)
		}
	})
	c.OnHTML(".uk-container > .uk-grid-divider > .uk-width-1-1:last-child", func(e *colly.HTMLElement) {
		if html, err := e.DOM.Html(); err == nil {
			sections = append(sections, html)
		}
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if ctx.Err() != nil {
		return opportunity.RawPosting{}, ctx.Err()
	}
	if err := c.Visit(it.Link); err != nil {
		return opportunity.RawPosting{}, err
	}
	c.Wait()
	if reqErr != nil {
		return opportunity.RawPosting{}, reqErr
	}
	if title == "" {
		return opportunity.RawPosting{}, fmt.Errorf("no title at %s", it.Link)
	}

	sections = append(sections, "*Como se candidatar:* "+it.Link)
	return opportunity.RawPosting{
		Title:       title,
		Description: strings.Join(sections, "\n\n"),
		Company:     it.Company,
		Location:    it.Location,
	}, nil
}

func (f *ComoEQueTaLaFetcher) newCollector() *colly.Collector {
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
