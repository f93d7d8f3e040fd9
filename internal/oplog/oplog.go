// Package oplog reports operational failures: every incident is logged,
// persisted as a JSON file and forwarded to the admin chat as a document.
package oplog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"vagasbot/internal/telegram"
)

type Reporter struct {
	transport telegram.Transport
	adminID   int64
	dir       string
	logger    *log.Logger

	now func() time.Time
}

func NewReporter(transport telegram.Transport, adminID int64, dir string, logger *log.Logger) *Reporter {
	return &Reporter{transport: transport, adminID: adminID, dir: dir, logger: logger, now: time.Now}
}

type incident struct {
	Tag     string `json:"tag"`
	Cause   string `json:"cause"`
	Context any    `json:"context,omitempty"`
}

// Record logs the incident, writes it to the log directory and sends
// the file to the admin. Reporting failures are swallowed after
// logging; an incident report must never break the caller.
func (r *Reporter) Record(ctx context.Context, tag string, cause error, extra any) {
	if r == nil {
		return
	}
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}
	if r.logger != nil {
		r.logger.Printf("[OpLog] %s: %s", tag, causeText)
	}

	path, err := r.writeFile(tag, causeText, extra)
	if err != nil {
		if r.logger != nil {
			r.logger.Printf("[OpLog] write incident file: %v", err)
		}
		return
	}

	if r.transport == nil || r.adminID == 0 {
		return
	}
	caption := fmt.Sprintf("<pre>\n%s\n%s\n</pre>", tag, causeText)
	_, err = r.transport.SendDocument(ctx, telegram.DocumentParams{
		ChatID:    r.adminID,
		FilePath:  path,
		Caption:   caption,
		ParseMode: "HTML",
	})
	if err != nil {
		_, err = r.transport.SendDocument(ctx, telegram.DocumentParams{
			ChatID:   r.adminID,
			FilePath: path,
			Caption:  tag + ": " + causeText,
		})
	}
	if err != nil && r.logger != nil {
		r.logger.Printf("[OpLog] notify admin: %v", err)
	}
}

func (r *Reporter) writeFile(tag, causeText string, extra any) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	body, err := json.MarshalIndent(incident{Tag: tag, Cause: causeText, Context: extra}, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, fmt.Sprintf("%s%d.log", tag, r.now().Unix()))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
