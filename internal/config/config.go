package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for addresses and identifiers, durations for
// timing knobs.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username (empty disables the journal DB)
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	BackendURL    string        // base URL of the booking backend API
	ProcessorURL  string        // base URL of the payment processor API
	ReturnURL     string        // URL the processor redirects back to after a challenge
	WaiverDelay   time.Duration // pause before auto-completing a zero-fee booking
	SessionTTL    time.Duration // how long an abandoned wizard survives in Redis
	TesseractBin  string        // tesseract binary name or path (empty uses default)
	OCRLang       string        // OCR language pack, e.g. "ocrb" or "eng"
	OCREngines    int           // number of OCR engines held in the pool
	ScanPerMinute int           // per-IP scan rate limit, 0 disables
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database and OCR
// settings are optional: the server degrades to an in-memory journal and a
// disabled scan endpoint when they are absent.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),      // environment (dev/test/prod)
		Port:          must("APP_PORT"),     // port to bind the HTTP server
		DBUser:        os.Getenv("DB_USER"), // empty means no durable journal
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		BackendURL:    must("BACKEND_URL"),   // booking backend, e.g. https://api.example.com
		ProcessorURL:  must("PROCESSOR_URL"), // payment processor
		ReturnURL:     must("PAYMENT_RETURN_URL"),
		WaiverDelay:   envDur("WAIVER_DELAY", 1500*time.Millisecond),
		SessionTTL:    envDur("SESSION_TTL", 24*time.Hour),
		TesseractBin:  os.Getenv("TESSERACT_BIN"),
		OCRLang:       envStr("OCR_LANG", "eng"),
		OCREngines:    envInt("OCR_ENGINES", 2),
		ScanPerMinute: envInt("SCAN_RATE_PER_MINUTE", 10),
	}
}

// HasDatabase reports whether enough DB settings are present to open MySQL.
func (c Config) HasDatabase() bool {
	return c.DBUser != "" && c.DBHost != "" && c.DBPort != "" && c.DBName != ""
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envStr returns the variable's value or the given default when unset.
func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// envInt is like envStr for integers.  An unparseable value is fatal
// rather than silently defaulted, matching must()'s behaviour.
func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

// envDur is like envInt for time.Duration values such as "1500ms" or "24h".
func envDur(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
