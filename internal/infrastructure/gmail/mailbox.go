// Package gmail adapts the Gmail API to the mailbox surface the mail
// fetcher consumes.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vagasbot/internal/fetch"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type Options struct {
	CredentialsFile string
	TokenFile       string
	AttachmentDir   string
}

type Mailbox struct {
	svc  *gmailapi.Service
	opts Options
}

// NewMailbox builds a Gmail-backed mailbox from an OAuth client secret
// and a previously stored user token.
func NewMailbox(ctx context.Context, opts Options) (*Mailbox, error) {
	creds, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(creds, gmailapi.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	token, err := tokenFromFile(opts.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail token: %w", err)
	}

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Mailbox{svc: svc, opts: opts}, nil
}

func (m *Mailbox) Search(ctx context.Context, query string) ([]fetch.MailMessage, error) {
	list, err := m.svc.Users.Messages.List("me").Q(query).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]fetch.MailMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := m.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		out = append(out, convertMessage(msg))
	}
	return out, nil
}

func (m *Mailbox) MarkRead(ctx context.Context, messageID string) error {
	return m.modify(ctx, messageID, &gmailapi.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}})
}

func (m *Mailbox) AddLabel(ctx context.Context, messageID, labelID string) error {
	return m.modify(ctx, messageID, &gmailapi.ModifyMessageRequest{AddLabelIds: []string{labelID}})
}

func (m *Mailbox) RemoveLabel(ctx context.Context, messageID, labelID string) error {
	return m.modify(ctx, messageID, &gmailapi.ModifyMessageRequest{RemoveLabelIds: []string{labelID}})
}

func (m *Mailbox) Trash(ctx context.Context, messageID string) error {
	_, err := m.svc.Users.Messages.Trash("me", messageID).Context(ctx).Do()
	return err
}

func (m *Mailbox) DownloadAttachment(ctx context.Context, messageID string, att fetch.MailAttachment) (string, error) {
	body, err := m.svc.Users.Messages.Attachments.Get("me", messageID, att.ID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(m.opts.AttachmentDir, messageID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(att.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (m *Mailbox) modify(ctx context.Context, messageID string, req *gmailapi.ModifyMessageRequest) error {
	_, err := m.svc.Users.Messages.Modify("me", messageID, req).Context(ctx).Do()
	return err
}

func convertMessage(msg *gmailapi.Message) fetch.MailMessage {
	out := fetch.MailMessage{ID: msg.Id}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, "Subject") {
			out.Subject = h.Value
			break
		}
	}
	out.Body = extractBody(msg.Payload)
	collectAttachments(msg.Payload, &out.Attachments)
	return out
}

// extractBody walks the MIME tree preferring an HTML part, falling
// back to plain text.
func extractBody(part *gmailapi.MessagePart) string {
	if html := findPart(part, "text/html"); html != "" {
		return html
	}
	return findPart(part, "text/plain")
}

func findPart(part *gmailapi.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}
	for _, p := range part.Parts {
		if body := findPart(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func collectAttachments(part *gmailapi.MessagePart, out *[]fetch.MailAttachment) {
	if part == nil {
		return
	}
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		*out = append(*out, fetch.MailAttachment{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MimeType: part.MimeType,
			Size:     part.Body.Size,
		})
	}
	for _, p := range part.Parts {
		collectAttachments(p, out)
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}
