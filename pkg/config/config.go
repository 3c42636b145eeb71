package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"weightvault/pkg/sink"
	"weightvault/pkg/vault"
)

// Client holds the buyer client settings
type Client struct {
	VaultURL       string
	OutputFile     string
	RedisAddr      string
	MetricsFile    string
	LogLevel       string
	FaithfulReplay bool
}

// Server holds the demo vault settings
type Server struct {
	ListenAddr  string
	WeightCount int
	LogLevel    string
}

// LoadDotEnv reads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// LoadClient reads the client settings; with an empty environment it
// returns the compiled-in defaults.
func LoadClient() Client {
	return Client{
		VaultURL:       getenv("VAULT_URL", vault.DefaultURL),
		OutputFile:     getenv("VAULT_OUTPUT_FILE", sink.DefaultPath),
		RedisAddr:      getenv("VAULT_REDIS_ADDR", ""),
		MetricsFile:    getenv("VAULT_METRICS_FILE", ""),
		LogLevel:       getenv("LOG_LEVEL", "warn"),
		FaithfulReplay: getbool("VAULT_FAITHFUL_REPLAY", false),
	}
}

// LoadServer reads the demo vault settings
func LoadServer() Server {
	return Server{
		ListenAddr:  getenv("VAULT_LISTEN_ADDR", ":3000"),
		WeightCount: getint("VAULT_WEIGHT_COUNT", vault.DefaultWeightCount),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getint(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
