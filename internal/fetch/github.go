package fetch

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"vagasbot/internal/opportunity"

	"github.com/gocolly/colly/v2"
)

// GithubFetcher scrapes issue trackers of Brazilian job-board
// repositories, one posting per issue opened today.
type GithubFetcher struct {
	issueURLs     []string
	skipDateCheck bool
	now           func() time.Time
}

func NewGithubFetcher(issueURLs []string, skipDateCheck bool) *GithubFetcher {
	return &GithubFetcher{issueURLs: issueURLs, skipDateCheck: skipDateCheck, now: time.Now}
}

func (f *GithubFetcher) Name() string { return "github" }

func (f *GithubFetcher) Fetch(ctx context.Context) ([]opportunity.RawPosting, error) {
	if f == nil || len(f.issueURLs) == 0 {
		return nil, fmt.Errorf("no issue urls configured")
	}

	out := make([]opportunity.RawPosting, 0)
	var firstErr error
	for _, issueURL := range f.issueURLs {
		postings, err := f.fetchRepo(ctx, issueURL)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("github %s: %w", issueURL, err)
			}
			continue
		}
		out = append(out, postings...)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

type githubIssue struct {
	Title string
	Link  string
}

func (f *GithubFetcher) fetchRepo(ctx context.Context, issueURL string) ([]opportunity.RawPosting, error) {
	issues, err := f.scrapeIssueList(ctx, issueURL)
	if err != nil {
		return nil, err
	}

	out := make([]opportunity.RawPosting, 0, len(issues))
	for _, issue := range issues {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		body, err := f.scrapeIssueBody(ctx, issue.Link)
		if err != nil {
			continue
		}
		out = append(out, opportunity.RawPosting{
			Title:       issue.Title,
			Description: body,
		})
	}
	return out, nil
}

func (f *GithubFetcher) scrapeIssueList(ctx context.Context, issueURL string) ([]githubIssue, error) {
	c := f.newCollector(issueURL)

	issues := make([]githubIssue, 0)
	c.OnHTML(`[aria-label="Issues"] .Box-row`, func(e *colly.HTMLElement) {
		ts, err := time.Parse(time.RFC3339, e.ChildAttr("relative-time", "datetime"))
		if err != nil || !postedToday(ts, f.now, f.skipDateCheck) {
			return
		}
		link := e.ChildAttr("a", "href")
		if link == "" {
			return
		}
		issues = append(issues, githubIssue{
			Title: strings.TrimSpace(e.ChildText("a")),
			Link:  e.Request.AbsoluteURL(link),
		})
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := c.Visit(issueURL); err != nil {
		return nil, err
	}
	c.Wait()
	if reqErr != nil {
		return nil, reqErr
	}
	return issues, nil
}

func (f *GithubFetcher) scrapeIssueBody(ctx context.Context, issueLink string) (string, error) {
	c := f.newCollector(issueLink)

	var body string
	c.OnHTML(".d-block.comment-body", func(e *colly.HTMLElement) {
		if body != "" {
			return
		}
		html, err := e.DOM.Html()
		if err != nil {
			return
		}
		body = strings.TrimSpace(html)
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err := c.Visit(issueLink); err != nil {
		return "", err
	}
	c.Wait()
	if reqErr != nil {
		return "", reqErr
	}
	if body == "" {
		return "", fmt.Errorf("no issue body at %s", issueLink)
	}
	return body, nil
}

func (f *GithubFetcher) newCollector(rawURL string) *colly.Collector {
	c := colly.NewCollector(
		colly.AllowedDomains(hostFromURL(rawURL)),
	)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 2, Delay: 400 * time.Millisecond})
	c.OnRequest(func(r *colly.Request) {
		for k, v := range crawlerHeaders() {
			r.Headers.Set(k, v)
		}
	})
	return c
}

func crawlerHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "VagasBot/1.0",
		"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.8",
	}
}

func hostFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		return h
	}
	return u.Host
}
