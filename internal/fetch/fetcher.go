// Package fetch collects raw job postings from external sources. Each
// source implements Fetcher; the pipeline runs all of them and routes
// the postings into the approval flow.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vagasbot/internal/opportunity"
)

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]opportunity.RawPosting, error)
}

// Mailbox is the slice of a mail provider the mail fetcher needs.
type Mailbox interface {
	Search(ctx context.Context, query string) ([]MailMessage, error)
	MarkRead(ctx context.Context, messageID string) error
	AddLabel(ctx context.Context, messageID, labelID string) error
	RemoveLabel(ctx context.Context, messageID, labelID string) error
	Trash(ctx context.Context, messageID string) error
	DownloadAttachment(ctx context.Context, messageID string, att MailAttachment) (string, error)
}

// Uploader moves a local file to hosted storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (UploadedFile, error)
}

type UploadedFile struct {
	URL    string
	Width  int
	Height int
}

// Ref is the file reference recorded on the posting: the hosted URL
// sized with the original pixel dimensions when the host reports them.
func (f UploadedFile) Ref() string {
	if f.Width <= 0 || f.Height <= 0 {
		return f.URL
	}
	sep := "?"
	if strings.Contains(f.URL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sw=%d&h=%d", f.URL, sep, f.Width, f.Height)
}

type MailMessage struct {
	ID          string
	Subject     string
	Body        string
	Attachments []MailAttachment
}

type MailAttachment struct {
	ID       string
	Filename string
	MimeType string
	Size     int64
}

var saoPaulo = mustLoadLocation("America/Sao_Paulo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// postedToday reports whether ts falls on the current calendar day in
// Brazil. now is injectable for tests; skip bypasses the check entirely.
func postedToday(ts time.Time, now func() time.Time, skip bool) bool {
	if skip {
		return true
	}
	if ts.IsZero() {
		return false
	}
	if now == nil {
		now = time.Now
	}
	today := now().In(saoPaulo)
	ts = ts.In(saoPaulo)
	return ts.Year() == today.Year() && ts.YearDay() == today.YearDay()
}
