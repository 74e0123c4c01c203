// Package config loads application configuration from a .env file and
// environment variables, and bootstraps the process-wide encryption key.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/promptdeck/promptdeck/internal/cipher"
)

// DefaultEnvFile is the dotenv file read at startup and appended to when the
// encryption key is first generated.
const DefaultEnvFile = ".env"

// Config holds the application configuration.
type Config struct {
	ListenAddr  string
	DBPath      string
	GeminiModel string

	// SecretKey is the 32-byte AES key protecting stored credentials.
	// Losing it permanently invalidates every stored session.
	SecretKey []byte

	// KeyGenerated reports whether SecretKey was created during this Load
	// call rather than read from the environment.
	KeyGenerated bool
}

// Load reads configuration from DefaultEnvFile and environment variables.
// Optional variables with defaults: PROMPTDECK_LISTEN_ADDR (127.0.0.1:8080),
// PROMPTDECK_DB_PATH (promptdeck.db), PROMPTDECK_GEMINI_MODEL (gemini-pro).
// PROMPTDECK_SECRET_KEY (base64, 32 bytes decoded) is generated and appended
// to the dotenv file on first run if absent.
func Load() (*Config, error) {
	return loadFrom(DefaultEnvFile)
}

func loadFrom(envFile string) (*Config, error) {
	// Missing dotenv file is fine; plain environment variables still apply.
	_ = godotenv.Load(envFile)

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PROMPTDECK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "promptdeck.db"
	if v, ok := os.LookupEnv("PROMPTDECK_DB_PATH"); ok {
		dbPath = v
	}

	geminiModel := "gemini-pro"
	if v, ok := os.LookupEnv("PROMPTDECK_GEMINI_MODEL"); ok {
		geminiModel = v
	}

	key, generated, err := loadOrGenerateKey(envFile)
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		GeminiModel:  geminiModel,
		SecretKey:    key,
		KeyGenerated: generated,
	}, nil
}

// loadOrGenerateKey returns the configured encryption key, or generates one
// and persists it to the dotenv file so restarts keep decrypting existing
// sessions. Generation is a one-time bootstrap, not a runtime branch: after
// the first run the key always comes from the environment.
func loadOrGenerateKey(envFile string) (key []byte, generated bool, err error) {
	if encoded, ok := os.LookupEnv("PROMPTDECK_SECRET_KEY"); ok && encoded != "" {
		key, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, false, fmt.Errorf("PROMPTDECK_SECRET_KEY is not valid base64: %w", err)
		}
		if len(key) != cipher.KeySize {
			return nil, false, fmt.Errorf("PROMPTDECK_SECRET_KEY must decode to %d bytes, got %d", cipher.KeySize, len(key))
		}
		return key, false, nil
	}

	key = make([]byte, cipher.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate secret key: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(key)

	f, err := os.OpenFile(envFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, false, fmt.Errorf("open %s for key append: %w", envFile, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "\nPROMPTDECK_SECRET_KEY=%s\n", encoded); err != nil {
		return nil, false, fmt.Errorf("append secret key to %s: %w", envFile, err)
	}

	// godotenv.Load will not override an already-set variable on a later
	// call, so export the key explicitly for the rest of this process.
	if err := os.Setenv("PROMPTDECK_SECRET_KEY", encoded); err != nil {
		return nil, false, fmt.Errorf("set PROMPTDECK_SECRET_KEY: %w", err)
	}

	return key, true, nil
}
