// Package app assembles the runtime dependency graph shared by the
// webhook server and the populate command.
package app

import (
	"context"
	"log"
	"os"
	"time"

	"vagasbot/internal/approval"
	"vagasbot/internal/bot"
	"vagasbot/internal/config"
	"vagasbot/internal/database"
	dbpostgres "vagasbot/internal/database/postgres"
	"vagasbot/internal/digest"
	"vagasbot/internal/fetch"
	"vagasbot/internal/infrastructure/cache"
	"vagasbot/internal/infrastructure/cloudinary"
	"vagasbot/internal/infrastructure/gmail"
	"vagasbot/internal/oplog"
	"vagasbot/internal/pipeline"
	"vagasbot/internal/publish"
	"vagasbot/internal/repository"
	"vagasbot/internal/telegram"
)

type Container struct {
	Config   config.Config
	DB       database.DB
	Cache    *cache.Redis
	Bot      *telegram.Bot
	Reporter *oplog.Reporter

	Opportunities repository.OpportunityRepository
	Notifications repository.NotificationRepository

	Dispatcher *publish.Dispatcher
	Workflow   *approval.Workflow
	Pipeline   *pipeline.Pipeline
	Notifier   *digest.Notifier
	Handler    *bot.Handler

	Logger *log.Logger
}

func NewContainer(cfg config.Config) (*Container, error) {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	tgBot, err := telegram.NewBot(cfg.Telegram.BotToken, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reporter := oplog.NewReporter(tgBot, cfg.Telegram.AdminID, cfg.App.LogDir, logger)

	redisCache := cache.NewRedis(cache.Options{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
	}, logger)

	opportunities := repository.NewPostgresOpportunityRepository(db)
	notifications := repository.NewPostgresNotificationRepository(db)

	dispatcher := publish.NewDispatcher(tgBot, reporter, logger)
	workflow := approval.NewWorkflow(opportunities, dispatcher, tgBot, approval.Options{
		AdminChatID: cfg.Telegram.AdminID,
		ChannelID:   cfg.Telegram.ChannelID,
		ChannelName: cfg.Telegram.ChannelName,
	}, logger)

	notifier := digest.NewNotifier(opportunities, notifications, tgBot, reporter, digest.Options{
		GroupID:     cfg.Telegram.GroupID,
		ChannelName: cfg.Telegram.ChannelName,
		AppURL:      cfg.App.AppURL,
	}, logger)

	fetchers := buildFetchers(cfg, logger)
	ingestion := pipeline.New(fetchers, opportunities, workflow, redisCache, reporter, logger)

	handler := bot.NewHandler(tgBot, opportunities, workflow, bot.Options{
		AdminChatID: cfg.Telegram.AdminID,
	}, logger)

	return &Container{
		Config:        cfg,
		DB:            db,
		Cache:         redisCache,
		Bot:           tgBot,
		Reporter:      reporter,
		Opportunities: opportunities,
		Notifications: notifications,
		Dispatcher:    dispatcher,
		Workflow:      workflow,
		Pipeline:      ingestion,
		Notifier:      notifier,
		Handler:       handler,
		Logger:        logger,
	}, nil
}

// buildFetchers assembles every configured source. The mail fetcher is
// skipped when its credentials are absent so a crawler-only deployment
// still works.
func buildFetchers(cfg config.Config, logger *log.Logger) []fetch.Fetcher {
	fetchers := []fetch.Fetcher{
		fetch.NewGithubFetcher(cfg.Crawler.GithubIssueURLs, cfg.Crawler.SkipDateCheck),
		fetch.NewComoEQueTaLaFetcher(cfg.Crawler.ComoEQueTaLaURL, cfg.Crawler.SkipDateCheck),
		fetch.NewQueroWorkarFetcher(cfg.Crawler.QueroWorkarURL, cfg.Crawler.SkipDateCheck),
	}

	mailbox, err := gmail.NewMailbox(context.Background(), gmail.Options{
		CredentialsFile: cfg.Gmail.CredentialsFile,
		TokenFile:       cfg.Gmail.TokenFile,
		AttachmentDir:   cfg.Gmail.AttachmentDir,
	})
	if err != nil {
		logger.Printf("[App] gmail source disabled: %v", err)
		return fetchers
	}

	var uploader fetch.Uploader
	if cfg.Cloudinary.URL != "" {
		up, err := cloudinary.NewUploader(cfg.Cloudinary.URL)
		if err != nil {
			logger.Printf("[App] cloudinary uploads disabled: %v", err)
		} else {
			uploader = up
		}
	}

	mail := fetch.NewMailFetcher(mailbox, uploader, fetch.MailFetcherOptions{
		ProcessedLabel: cfg.Gmail.ProcessedLabel,
		UnreadLabel:    cfg.Gmail.UnreadLabel,
	}, logger)
	return append([]fetch.Fetcher{mail}, fetchers...)
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
