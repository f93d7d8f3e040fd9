package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vagasbot/internal/app"
	"vagasbot/internal/config"
	"vagasbot/internal/database/migration"
	"vagasbot/internal/scheduler"
	"vagasbot/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(c.Pipeline, c.Notifier, scheduler.Options{
		ProcessSpec: cfg.Scheduler.ProcessSpec,
		NotifySpec:  cfg.Scheduler.NotifySpec,
	}, c.Logger)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	f := fiber.New(fiber.Config{})
	registerRoutes(f, c, cfg.Telegram.BotToken)

	errCh := make(chan error, 1)
	go func() {
		errCh <- f.Listen(":" + cfg.App.HTTPPort)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case <-sigCh:
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := f.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}

func registerRoutes(f *fiber.App, c *app.Container, token string) {
	f.Get("/health", func(ctx fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusOK)
	})

	// The webhook path carries the bot token, which is what proves the
	// request really comes from the chat platform.
	f.Post("/webhook/:token", func(ctx fiber.Ctx) error {
		if subtle.ConstantTimeCompare([]byte(ctx.Params("token")), []byte(token)) != 1 {
			return ctx.SendStatus(fiber.StatusNotFound)
		}

		var update tgbotapi.Update
		if err := json.Unmarshal(ctx.Body(), &update); err != nil {
			return ctx.SendStatus(fiber.StatusBadRequest)
		}

		c.Handler.ProcessUpdate(ctx.Context(), telegram.FromBotAPI(update))
		return ctx.SendStatus(fiber.StatusOK)
	})
}
