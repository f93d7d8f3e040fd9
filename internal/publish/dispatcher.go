// Package publish renders opportunities into channel messages and
// delivers them chunk by chunk.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"vagasbot/internal/normalize"
	"vagasbot/internal/opportunity"
	"vagasbot/internal/telegram"
)

const (
	// MaxMessageLength is the transport's hard cap per message.
	MaxMessageLength = 4096

	// MinDescriptionLength filters out postings too short to be real.
	MinDescriptionLength = 200
)

// GroupSignature closes every published posting.
const GroupSignature = "\n\n*PHPDF*\n✅ *Canal:* @VagasBrasil\\_TI\n✅ *Grupo:* @phpdf"

type Reporter interface {
	Record(ctx context.Context, tag string, cause error, extra any)
}

// errChunkDropped marks a chunk lost to a markup rejection whose plain
// retry also failed. The incident is already recorded when it surfaces.
var errChunkDropped = errors.New("chunk dropped after failed plain retry")

type Dispatcher struct {
	transport telegram.Transport
	reporter  Reporter
	logger    *log.Logger
}

func NewDispatcher(transport telegram.Transport, reporter Reporter, logger *log.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, reporter: reporter, logger: logger}
}

type Options struct {
	ReplyMarkup any
}

// Send renders the opportunity and delivers it to chatID. Each chunk
// after the first replies to the previous one so readers see a thread.
// A chunk rejected both formatted and plain is reported and dropped;
// the following chunks still go out, replying to the last delivered id.
// The returned ids follow the sent chunks in order; an empty slice with
// a nil error means the posting was skipped as too short.
func (d *Dispatcher) Send(ctx context.Context, o opportunity.Opportunity, chatID int64, opts Options) ([]int, error) {
	if d == nil || d.transport == nil {
		return nil, fmt.Errorf("nil dispatcher/transport")
	}

	chunks := SplitChunks(FormatOpportunity(o), MaxMessageLength)
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(chunks))
	lastID := 0
	for _, chunk := range chunks {
		params := telegram.SendParams{
			ChatID:           chatID,
			Text:             chunk,
			ParseMode:        telegram.ModeMarkdown,
			ReplyToMessageID: lastID,
		}
		if lastID == 0 {
			params.ReplyMarkup = opts.ReplyMarkup
		}
		ref, err := d.sendChunk(ctx, params)
		if errors.Is(err, errChunkDropped) {
			d.logf("dropping chunk for %q: %v", o.Title, err)
			continue
		}
		if err != nil {
			return ids, err
		}
		ids = append(ids, ref.MessageID)
		lastID = ref.MessageID
	}
	return ids, nil
}

// sendChunk delivers one message, retrying once with markup stripped
// when the transport rejects the formatted text. A rejection produces
// a single incident report carrying the retry outcome.
func (d *Dispatcher) sendChunk(ctx context.Context, params telegram.SendParams) (telegram.MessageRef, error) {
	ref, err := d.transport.SendMessage(ctx, params)
	if err == nil {
		return ref, nil
	}
	if !telegram.IsMarkupRejected(err) {
		return telegram.MessageRef{}, err
	}

	plain := params
	plain.Text = normalize.StripMarkup(params.Text)
	plain.ParseMode = ""
	ref, retryErr := d.transport.SendMessage(ctx, plain)
	if d.reporter != nil {
		d.reporter.Record(ctx, "FALHA_AO_ENVIAR_MARKDOWN", err, map[string]any{
			"chat_id":     params.ChatID,
			"retry_error": errText(retryErr),
		})
	}
	if retryErr != nil {
		return telegram.MessageRef{}, fmt.Errorf("%w: %v", errChunkDropped, retryErr)
	}
	return ref, nil
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf("[Publish] "+format, args...)
	}
}

// FormatOpportunity renders the channel message body. Postings with a
// description shorter than MinDescriptionLength render to "".
func FormatOpportunity(o opportunity.Opportunity) string {
	if len([]rune(o.Description)) < MinDescriptionLength {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", o.Title)
	for _, file := range o.Files {
		fmt.Fprintf(&b, "\n\n[Image](%s)", file)
	}
	fmt.Fprintf(&b, "\n\n*Descrição*\n%s", o.Description)
	if o.Location != "" {
		fmt.Fprintf(&b, "\n\n*Localização*\n%s", o.Location)
	}
	if o.Company != "" {
		fmt.Fprintf(&b, "\n\n*Empresa*\n%s", o.Company)
	}
	if o.Salary != "" {
		fmt.Fprintf(&b, "\n\n*Salario*\n%s", o.Salary)
	}
	b.WriteString(GroupSignature)
	return b.String()
}

// SplitChunks cuts text into rune slices of at most size runes.
func SplitChunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = MaxMessageLength
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
