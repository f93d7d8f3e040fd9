package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        AppConfig
	Telegram   TelegramConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gmail      GmailConfig
	Cloudinary CloudinaryConfig
	Crawler    CrawlerConfig
	Scheduler  SchedulerConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
	AppURL      string
	LogDir      string
}

type TelegramConfig struct {
	BotToken    string
	ChannelID   int64
	GroupID     int64
	AdminID     int64
	ChannelName string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	ProcessedLabel  string
	UnreadLabel     string
	AttachmentDir   string
}

type CloudinaryConfig struct {
	URL string
}

type CrawlerConfig struct {
	// SkipDateCheck disables the "posted today" filter on scraped sources.
	SkipDateCheck   bool
	GithubIssueURLs []string
	ComoEQueTaLaURL string
	QueroWorkarURL  string
}

type SchedulerConfig struct {
	ProcessSpec string
	NotifySpec  string
}

var defaultGithubIssueURLs = []string{
	"https://github.com/frontendbr/vagas/issues",
	"https://github.com/androiddevbr/vagas/issues",
	"https://github.com/CangaceirosDevels/vagas_de_emprego/issues",
	"https://github.com/CocoaHeadsBrasil/vagas/issues",
	"https://github.com/phpdevbr/vagas/issues",
	"https://github.com/vuejs-br/vagas/issues",
	"https://github.com/backend-br/vagas/issues",
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, fallback string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return fallback
		}
		return v
	}
	reqInt64 := func(key string) int64 {
		v := req(key)
		if v == "" {
			return 0
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			missing = append(missing, key+" (not an integer)")
			return 0
		}
		return n
	}

	cfg.App = AppConfig{
		AppName:     opt("APP_NAME", "vagasbot"),
		Environment: opt("APP_ENV", "production"),
		HTTPPort:    opt("HTTP_PORT", "8080"),
		AppURL:      opt("APP_URL", ""),
		LogDir:      opt("LOG_DIR", "storage/logs"),
	}

	cfg.Telegram = TelegramConfig{
		BotToken:    req("TELEGRAM_BOT_TOKEN"),
		ChannelID:   reqInt64("TELEGRAM_CHANNEL"),
		GroupID:     reqInt64("TELEGRAM_GROUP"),
		AdminID:     reqInt64("TELEGRAM_GROUP_ADM"),
		ChannelName: opt("TELEGRAM_CHANNEL_NAME", "VagasBrasil_TI"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     opt("DB_HOST", "localhost"),
		DBPort:     opt("DB_PORT", "5432"),
		DBName:     req("DB_NAME"),
		DBUser:     req("DB_USER"),
		DBPassword: opt("DB_PASSWORD", ""),
		DBSSLMode:  opt("DB_SSL_MODE", "disable"),

		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT"),
		PoolMaxConns:          optInt32("DB_POOL_MAX_CONNS"),
		PoolMinConns:          optInt32("DB_POOL_MIN_CONNS"),
		PoolMaxConnLifetime:   optDuration("DB_POOL_MAX_CONN_LIFETIME"),
		PoolMaxConnIdleTime:   optDuration("DB_POOL_MAX_CONN_IDLE_TIME"),
		PoolHealthCheckPeriod: optDuration("DB_POOL_HEALTH_CHECK_PERIOD"),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST", "localhost"),
		Port:     opt("REDIS_PORT", "6379"),
		Password: opt("REDIS_PASSWORD", ""),
	}

	cfg.Gmail = GmailConfig{
		CredentialsFile: opt("GMAIL_CREDENTIALS_FILE", "credentials.json"),
		TokenFile:       opt("GMAIL_TOKEN_FILE", "token.json"),
		ProcessedLabel:  opt("GMAIL_PROCESSED_LABEL", "Label_5517839157714334708"),
		UnreadLabel:     opt("GMAIL_UNREAD_LABEL", "Label_7"),
		AttachmentDir:   opt("GMAIL_ATTACHMENT_DIR", "storage/uploads"),
	}

	cfg.Cloudinary = CloudinaryConfig{
		URL: opt("CLOUDINARY_URL", ""),
	}

	cfg.Crawler = CrawlerConfig{
		SkipDateCheck:   optBool("CRAWLER_SKIP_DATE_CHECK"),
		GithubIssueURLs: optList("CRAWLER_GITHUB_ISSUE_URLS", defaultGithubIssueURLs),
		ComoEQueTaLaURL: opt("CRAWLER_COMOEQUETALA_URL", "https://comoequetala.com.br/vagas-e-jobs"),
		QueroWorkarURL:  opt("CRAWLER_QUEROWORKAR_URL", "http://queroworkar.com.br/blog/jobs/"),
	}

	cfg.Scheduler = SchedulerConfig{
		ProcessSpec: opt("SCHEDULE_PROCESS", "@every 1h"),
		NotifySpec:  opt("SCHEDULE_NOTIFY", "0 12 * * *"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func optBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func optInt32(key string) int32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func optList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
