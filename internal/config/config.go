package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	// Ledger / wallet integration
	LedgerRPCURL    string
	WalletBridgeURL string
	MerchantAddress string

	// Rate source
	RateAPIURL  string
	FixedRates  bool
	SOLUSDRate  string
	USDCUSDRate string

	// Payment confirmation
	ConfirmPollInterval time.Duration
	ConfirmTimeout      time.Duration

	// Reconciliation worker
	ReconcileInterval time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),

		LedgerRPCURL:    os.Getenv("LEDGER_RPC_URL"),
		WalletBridgeURL: os.Getenv("WALLET_BRIDGE_URL"),
		MerchantAddress: os.Getenv("MERCHANT_ADDRESS"),

		RateAPIURL:  os.Getenv("RATE_API_URL"),
		FixedRates:  os.Getenv("FIXED_RATES") == "true",
		SOLUSDRate:  os.Getenv("SOL_USD_RATE"),
		USDCUSDRate: os.Getenv("USDC_USD_RATE"),

		ConfirmPollInterval: durationEnv("CONFIRM_POLL_INTERVAL_SECONDS", 2*time.Second),
		ConfirmTimeout:      durationEnv("CONFIRM_TIMEOUT_SECONDS", 60*time.Second),
		ReconcileInterval:   durationEnv("RECONCILE_INTERVAL_SECONDS", 30*time.Second),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
