package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration, read from the environment (and .env when present).
// An empty channel id or credential disables the feature that needs it.
type Config struct {
	Database  DatabaseConfig
	Discord   DiscordConfig
	Channels  ChannelConfig
	Schedule  ScheduleConfig
	Popching  PopchingConfig
	Telegram  TelegramConfig
	Prices    PriceConfig
	R2        R2Config
	Server    ServerConfig
	SiteURL   string
	LogLevel  string
	LogFormat string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
	AutoMigrate  bool
}

// DiscordConfig holds one token per bot; a bot with an empty token is not started.
type DiscordConfig struct {
	Enabled     bool
	TokenBTC    string
	TokenETH    string
	TokenSOL    string
	TokenLINK   string
	TokenHYPE   string
	TokenCLASH  string
	TokenTourny string
	GuildID     string
}

type ChannelConfig struct {
	Standings   string
	Results     string
	Announce    string
	TweetMirror string
	Leaderboard string
}

type ScheduleConfig struct {
	PinnedEvery      time.Duration
	LeaderboardEvery time.Duration
	PriceEvery       time.Duration
	PinnedStartDelay time.Duration
}

type PopchingConfig struct {
	URL           string
	Secret        string
	Project       string
	TwitterHandle string
}

type TelegramConfig struct {
	APIURL    string
	BotToken  string
	ChannelID string
}

type PriceConfig struct {
	CoinGeckoURL   string
	DexScreenerURL string
	ClashChain     string
	ClashPair      string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

type ServerConfig struct {
	Port       int
	AdminToken string
}

// Enabled reports whether uploads can be attempted at all.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_TIME", "30s")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DISCORD_ENABLED", true)
	v.SetDefault("PINNED_LEADERBOARD_UPDATE_MINUTES", 60)
	v.SetDefault("LEADERBOARD_UPDATE_HOURS", 3)
	v.SetDefault("PRICE_UPDATE_INTERVAL", 1)
	v.SetDefault("PINNED_START_DELAY", "10s")
	v.SetDefault("POPCHING_PROJECT", "cryptoclash")
	v.SetDefault("TWITTER_HANDLE", "CryptoClash_ink")
	v.SetDefault("TELEGRAM_API_URL", "https://api.telegram.org")
	v.SetDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3")
	v.SetDefault("DEXSCREENER_URL", "https://api.dexscreener.com")
	v.SetDefault("CLASH_DEX_CHAIN", "ink")
	v.SetDefault("CLASH_DEX_PAIR", "0x4af0ebea525f9006852918d92bf3749ef86cb514")
	v.SetDefault("HTTP_PORT", 5200)
	v.SetDefault("SITE_URL", "https://www.cryptoclash.ink")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads .env (if any) and the process environment.
// A missing .env is fine; one that exists but cannot be read is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	minutes := func(key string) time.Duration {
		n := v.GetInt(key)
		if n <= 0 {
			n = 1
		}
		return time.Duration(n) * time.Minute
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxIdleTime:  v.GetDuration("DB_MAX_IDLE_TIME"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
		Discord: DiscordConfig{
			Enabled:     v.GetBool("DISCORD_ENABLED"),
			TokenBTC:    v.GetString("DISCORD_TOKEN_BTC"),
			TokenETH:    v.GetString("DISCORD_TOKEN_ETH"),
			TokenSOL:    v.GetString("DISCORD_TOKEN_SOL"),
			TokenLINK:   v.GetString("DISCORD_TOKEN_LINK"),
			TokenHYPE:   v.GetString("DISCORD_TOKEN_HYPE"),
			TokenCLASH:  v.GetString("DISCORD_TOKEN_CLASH"),
			TokenTourny: v.GetString("DISCORD_TOKEN_TOURNAMENT"),
			GuildID:     v.GetString("DISCORD_GUILD_ID"),
		},
		Channels: ChannelConfig{
			Standings:   v.GetString("TOURNAMENT_STANDINGS_CHANNEL_ID"),
			Results:     v.GetString("TOURNAMENT_RESULTS_CHANNEL_ID"),
			Announce:    v.GetString("TOURNAMENT_ANNOUNCE_CHANNEL_ID"),
			TweetMirror: v.GetString("TWEET_MIRROR_CHANNEL_ID"),
			Leaderboard: v.GetString("LEADERBOARD_CHANNEL_ID"),
		},
		Schedule: ScheduleConfig{
			PinnedEvery:      minutes("PINNED_LEADERBOARD_UPDATE_MINUTES"),
			LeaderboardEvery: minutes("LEADERBOARD_UPDATE_HOURS") * 60,
			PriceEvery:       minutes("PRICE_UPDATE_INTERVAL"),
			PinnedStartDelay: v.GetDuration("PINNED_START_DELAY"),
		},
		Popching: PopchingConfig{
			URL:           strings.TrimRight(v.GetString("POPCHING_URL"), "/"),
			Secret:        v.GetString("POPCHING_SECRET"),
			Project:       v.GetString("POPCHING_PROJECT"),
			TwitterHandle: v.GetString("TWITTER_HANDLE"),
		},
		Telegram: TelegramConfig{
			APIURL:    strings.TrimRight(v.GetString("TELEGRAM_API_URL"), "/"),
			BotToken:  v.GetString("TELEGRAM_BOT_TOKEN"),
			ChannelID: v.GetString("TELEGRAM_CHANNEL_ID"),
		},
		Prices: PriceConfig{
			CoinGeckoURL:   strings.TrimRight(v.GetString("COINGECKO_URL"), "/"),
			DexScreenerURL: strings.TrimRight(v.GetString("DEXSCREENER_URL"), "/"),
			ClashChain:     v.GetString("CLASH_DEX_CHAIN"),
			ClashPair:      v.GetString("CLASH_DEX_PAIR"),
		},
		R2: R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      strings.TrimRight(v.GetString("CDN_BASE_URL"), "/"),
		},
		Server: ServerConfig{
			Port:       v.GetInt("HTTP_PORT"),
			AdminToken: v.GetString("ADMIN_TOKEN"),
		},
		SiteURL:   strings.TrimRight(v.GetString("SITE_URL"), "/"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}
}
