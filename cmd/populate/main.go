package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"time"

	"vagasbot/internal/app"
	"vagasbot/internal/config"
	"vagasbot/internal/database/migration"
	"vagasbot/internal/telegram"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		log.Fatalf("missing action")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	c, err := app.NewContainer(cfg)
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	migCtx, migCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer migCancel()
	r := migration.Runner{Dir: "migrations"}
	if err := r.Run(migCtx, c.DB.SQLDB()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch flag.Arg(0) {
	case "process":
		if err := c.Pipeline.IngestAll(ctx); err != nil {
			log.Fatalf("process failed: %v", err)
		}
	case "notify":
		if err := c.Notifier.Notify(ctx); err != nil {
			log.Fatalf("notify failed: %v", err)
		}
	case "send":
		id := mustID(flag.Arg(1))
		if err := c.Workflow.Approve(ctx, id); err != nil {
			log.Fatalf("send failed: %v", err)
		}
	case "approval":
		id := mustID(flag.Arg(1))
		o, err := c.Opportunities.FindByID(ctx, id)
		if err != nil {
			log.Fatalf("approval failed: %v", err)
		}
		origin := originRef(flag.Arg(2), flag.Arg(3))
		if err := c.Workflow.SendToApproval(ctx, o, origin); err != nil {
			log.Fatalf("approval failed: %v", err)
		}
	default:
		usage()
		log.Fatalf("unknown action %q", flag.Arg(0))
	}
}

func mustID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Fatalf("invalid opportunity id %q: %v", raw, err)
	}
	return id
}

// originRef rebuilds the submission message reference passed by the
// webhook process, or nil when the posting came from the pipeline.
func originRef(messageArg, chatArg string) *telegram.MessageRef {
	if messageArg == "" || chatArg == "" {
		return nil
	}
	messageID, err := strconv.Atoi(messageArg)
	if err != nil {
		log.Fatalf("invalid message id %q: %v", messageArg, err)
	}
	chatID, err := strconv.ParseInt(chatArg, 10, 64)
	if err != nil {
		log.Fatalf("invalid chat id %q: %v", chatArg, err)
	}
	return &telegram.MessageRef{ChatID: chatID, MessageID: messageID}
}

func usage() {
	log.Printf("usage: populate <action> [args]")
	log.Printf("  process                       fetch sources and send postings to approval")
	log.Printf("  notify                        post the digest to the group")
	log.Printf("  send <id>                     publish an approved opportunity")
	log.Printf("  approval <id> [message chat]  resend an opportunity to the admins")
}
