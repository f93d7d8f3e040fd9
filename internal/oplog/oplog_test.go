package oplog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"vagasbot/internal/telegram"
)

type fakeTransport struct {
	documents []telegram.DocumentParams
	failHTML  bool
}

func (f *fakeTransport) SendMessage(ctx context.Context, p telegram.SendParams) (telegram.MessageRef, error) {
	return telegram.MessageRef{}, nil
}

func (f *fakeTransport) SendDocument(ctx context.Context, p telegram.DocumentParams) (telegram.MessageRef, error) {
	if f.failHTML && p.ParseMode == "HTML" {
		return telegram.MessageRef{}, fmt.Errorf("bad caption")
	}
	f.documents = append(f.documents, p)
	return telegram.MessageRef{MessageID: 1}, nil
}

func (f *fakeTransport) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (telegram.MessageRef, error) {
	return telegram.MessageRef{}, nil
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return nil
}

func TestRecordWritesFileAndNotifiesAdmin(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTransport{}
	r := NewReporter(tr, 99, dir, nil)

	r.Record(context.Background(), "FALHA_AO_PROCESSAR_GMAIL", fmt.Errorf("boom"), map[string]any{"id": "m1"})

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("incident file missing: %v %v", entries, err)
	}
	if !strings.HasPrefix(entries[0].Name(), "FALHA_AO_PROCESSAR_GMAIL") {
		t.Fatalf("file name = %q", entries[0].Name())
	}

	raw, err := os.ReadFile(dir + "/" + entries[0].Name())
	if err != nil {
		t.Fatalf("read incident: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("incident not valid json: %v", err)
	}
	if payload["cause"] != "boom" {
		t.Fatalf("payload = %v", payload)
	}

	if len(tr.documents) != 1 || tr.documents[0].ChatID != 99 {
		t.Fatalf("admin not notified: %+v", tr.documents)
	}
	if tr.documents[0].ParseMode != "HTML" {
		t.Fatalf("caption mode = %q", tr.documents[0].ParseMode)
	}
}

func TestRecordFallsBackToPlainCaption(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTransport{failHTML: true}
	r := NewReporter(tr, 99, dir, nil)

	r.Record(context.Background(), "ERRO", fmt.Errorf("boom"), nil)

	if len(tr.documents) != 1 {
		t.Fatalf("got %d documents, want 1 plain fallback", len(tr.documents))
	}
	if tr.documents[0].ParseMode != "" {
		t.Fatalf("fallback kept parse mode %q", tr.documents[0].ParseMode)
	}
}
