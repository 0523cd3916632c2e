package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/egpaydcx/egpay-backend/internal/types/environments"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Postgres    DBConnection
	Blockchain  BlockchainConfig
	Telegram    TelegramConfig
	Pricing     PricingConfig
	Vault       VaultConfig
	Jobs        JobsConfig
}

type ApiServerConfig struct {
	Port           string
	AllowedOrigins string
	AdminSecret    string
	// requests per second per client IP on public order endpoints
	IntakeRateLimit float64
	IntakeBurst     int
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

type BlockchainConfig struct {
	RPCEndpoint         string
	ChainID             int64
	HotWalletPrivateKey string
	// symbol -> ERC20 contract address
	TokenContracts map[string]string
	ReceiptTimeout time.Duration
	GasLimit       uint64
}

type TelegramConfig struct {
	BotToken        string
	ChatID          string
	OperatorUserIDs []int64
	WebhookSecret   string
	APIBaseURL      string
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

type PricingConfig struct {
	MinInr    int64
	MaxInr    int64
	MaxFeeBps int64
	// symbol -> tokens per INR, kept as decimal strings to stay exact
	Rates map[string]string
	// symbol -> ERC20 decimals; coins not listed are priced with 18
	Decimals map[string]int32
}

type VaultConfig struct {
	Addr           string
	Role           string
	KVSecretPath   string
	HotWalletKeyID string
}

func (c VaultConfig) Enabled() bool {
	return c.Addr != "" && c.KVSecretPath != ""
}

type JobsConfig struct {
	StaleDigestSpec    string
	PendingStaleAfter  time.Duration
	ApprovedStaleAfter time.Duration
	UptimeSpec         string
	UptimeWebhookURL   string
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			Port:            envOr("PORT", "8080"),
			AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
			AdminSecret:     os.Getenv("ADMIN_API_SECRET"),
			IntakeRateLimit: envVarAsFloat("INTAKE_RATE_LIMIT", 1),
			IntakeBurst:     envVarAtoiOr("INTAKE_RATE_BURST", 5),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: envOr("DB_SSL_MODE", "require"),
		},
		Blockchain: BlockchainConfig{
			RPCEndpoint:         os.Getenv("BLOCKCHAIN_RPC_ENDPOINT"),
			ChainID:             int64(envVarAtoiOr("BLOCKCHAIN_CHAIN_ID", 56)),
			HotWalletPrivateKey: os.Getenv("HOT_WALLET_PRIVATE_KEY"),
			TokenContracts:      parsePairs(os.Getenv("TOKEN_CONTRACTS")),
			ReceiptTimeout:      envVarAsDuration("BLOCKCHAIN_RECEIPT_TIMEOUT", 2*time.Minute),
			GasLimit:            uint64(envVarAtoiOr("BLOCKCHAIN_GAS_LIMIT", 0)),
		},
		Telegram: TelegramConfig{
			BotToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:          os.Getenv("TELEGRAM_CHAT_ID"),
			OperatorUserIDs: parseInt64List(os.Getenv("TELEGRAM_OPERATOR_USER_IDS")),
			WebhookSecret:   os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			APIBaseURL:      envOr("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		},
		Pricing: PricingConfig{
			MinInr:    int64(envVarAtoiOr("PRICING_MIN_INR", 10)),
			MaxInr:    int64(envVarAtoiOr("PRICING_MAX_INR", 500000)),
			MaxFeeBps: int64(envVarAtoiOr("PRICING_MAX_FEE_BPS", 500)),
			Rates:     withDefaultRates(parsePairs(os.Getenv("PRICING_RATES"))),
			Decimals:  parseDecimals(os.Getenv("TOKEN_DECIMALS")),
		},
		Vault: VaultConfig{
			Addr:           os.Getenv("VAULT_ADDR"),
			Role:           os.Getenv("VAULT_ROLE"),
			KVSecretPath:   os.Getenv("VAULT_KV_SECRET_PATH"),
			HotWalletKeyID: envOr("VAULT_HOT_WALLET_KEY", "hot_wallet_private_key"),
		},
		Jobs: JobsConfig{
			StaleDigestSpec:    envOr("JOBS_STALE_DIGEST_SPEC", "@every 30m"),
			PendingStaleAfter:  envVarAsDuration("JOBS_PENDING_STALE_AFTER", 2*time.Hour),
			ApprovedStaleAfter: envVarAsDuration("JOBS_APPROVED_STALE_AFTER", 15*time.Minute),
			UptimeSpec:         envOr("JOBS_UPTIME_SPEC", "@every 1m"),
			UptimeWebhookURL:   os.Getenv("UPTIME_WEBHOOK_URL"),
		},
	}
}

func envOr(envName, fallback string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}

func envVarAtoiOr(envName string, fallback int) int {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarAsFloat(envName string, fallback float64) float64 {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarAsDuration(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

// parsePairs reads "A:x,B:y" into a map keyed by upper-cased A, B.
func parsePairs(raw string) map[string]string {
	out := map[string]string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func parseInt64List(raw string) []int64 {
	var out []int64
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		v, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			panic(err)
		}
		out = append(out, v)
	}
	return out
}

func parseDecimals(raw string) map[string]int32 {
	out := map[string]int32{}
	for coin, v := range parsePairs(raw) {
		d, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			panic(err)
		}
		out[coin] = int32(d)
	}
	return out
}

func withDefaultRates(rates map[string]string) map[string]string {
	if _, ok := rates["EGLIFE"]; !ok {
		rates["EGLIFE"] = "1"
	}
	return rates
}
