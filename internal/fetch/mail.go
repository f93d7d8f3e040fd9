package fetch

import (
	"context"
	"fmt"
	"log"
	"strings"

	"vagasbot/internal/opportunity"
	"vagasbot/internal/tags"
)

// mailingGroups are the lists whose traffic carries job postings. The
// query matches each one as sender list, direct recipient and bcc.
var mailingGroups = []string{
	"gebeoportunidades@googlegroups.com",
	"profissaofuturowindows@googlegroups.com",
	"nvagas@googlegroups.com",
	"leonardoti@googlegroups.com",
	"clubinfobsb@googlegroups.com",
	"vagas@noreply.github.com",
}

type MailFetcherOptions struct {
	ProcessedLabel string
	UnreadLabel    string
}

// MailFetcher pulls unread postings from the configured mailbox. Each
// consumed message is marked read, relabeled and trashed so the next
// run does not see it again.
type MailFetcher struct {
	mailbox  Mailbox
	uploader Uploader
	opts     MailFetcherOptions
	logger   *log.Logger
}

func NewMailFetcher(mailbox Mailbox, uploader Uploader, opts MailFetcherOptions, logger *log.Logger) *MailFetcher {
	return &MailFetcher{mailbox: mailbox, uploader: uploader, opts: opts, logger: logger}
}

func (f *MailFetcher) Name() string { return "gmail" }

func (f *MailFetcher) Fetch(ctx context.Context) ([]opportunity.RawPosting, error) {
	if f == nil || f.mailbox == nil {
		return nil, fmt.Errorf("nil fetcher/mailbox")
	}

	messages, err := f.mailbox.Search(ctx, BuildMailQuery())
	if err != nil {
		return nil, fmt.Errorf("gmail search: %w", err)
	}

	out := make([]opportunity.RawPosting, 0, len(messages))
	for _, msg := range messages {
		out = append(out, opportunity.RawPosting{
			Title:       msg.Subject,
			Description: msg.Body,
			Files:       f.collectAttachments(ctx, msg),
		})
		f.consume(ctx, msg.ID)
	}
	return out, nil
}

// collectAttachments downloads and uploads every attachment except
// small images, which are almost always signature logos.
func (f *MailFetcher) collectAttachments(ctx context.Context, msg MailMessage) []string {
	var files []string
	for _, att := range msg.Attachments {
		if att.Size < 50000 && strings.Contains(att.MimeType, "image") {
			continue
		}
		path, err := f.mailbox.DownloadAttachment(ctx, msg.ID, att)
		if err != nil {
			f.logf("attachment %s of message %s: %v", att.Filename, msg.ID, err)
			continue
		}
		if f.uploader == nil {
			continue
		}
		uploaded, err := f.uploader.Upload(ctx, path)
		if err != nil {
			f.logf("upload %s: %v", path, err)
			continue
		}
		files = append(files, uploaded.Ref())
	}
	return files
}

func (f *MailFetcher) consume(ctx context.Context, messageID string) {
	if err := f.mailbox.MarkRead(ctx, messageID); err != nil {
		f.logf("mark read %s: %v", messageID, err)
	}
	if f.opts.ProcessedLabel != "" {
		if err := f.mailbox.AddLabel(ctx, messageID, f.opts.ProcessedLabel); err != nil {
			f.logf("add label %s: %v", messageID, err)
		}
	}
	if f.opts.UnreadLabel != "" {
		if err := f.mailbox.RemoveLabel(ctx, messageID, f.opts.UnreadLabel); err != nil {
			f.logf("remove label %s: %v", messageID, err)
		}
	}
	if err := f.mailbox.Trash(ctx, messageID); err != nil {
		f.logf("trash %s: %v", messageID, err)
	}
}

func (f *MailFetcher) logf(format string, args ...any) {
	if f.logger != nil {
		f.logger.Printf("[Fetch] gmail: "+format, args...)
	}
}

// BuildMailQuery assembles the Gmail search expression: any of the
// mailing groups, any of the relevance keywords, unread only.
func BuildMailQuery() string {
	fromTo := make([]string, 0, len(mailingGroups)*3)
	for _, group := range mailingGroups {
		fromTo = append(fromTo, "list:"+group, "to:"+group, "bcc:"+group)
	}
	return fmt.Sprintf("{%s} {%s} is:unread",
		strings.Join(fromTo, " "),
		strings.Join(tags.RelevanceKeywords, " "),
	)
}
