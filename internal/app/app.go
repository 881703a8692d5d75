package app

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DatabaseURL     string
	SessionLifetime time.Duration

	// Anonymous comment throttling.
	AnonCommentLimit  int
	AnonCommentWindow time.Duration

	StatsTTL   time.Duration
	UserpicDir string
}

// LoadConfig reads settings from the environment, with a .env file in
// the working directory taken into account when present.
func LoadConfig() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf(".env not loaded: %v", err)
	}

	return Config{
		Addr:              getenv("ADDR", ":8080"),
		DatabaseURL:       getenv("DATABASE_URL", "./journal.db"),
		SessionLifetime:   getdur("SESSION_LIFETIME", 24*time.Hour),
		AnonCommentLimit:  getint("ANON_COMMENT_LIMIT", 5),
		AnonCommentWindow: getdur("ANON_COMMENT_WINDOW", 15*time.Minute),
		StatsTTL:          getdur("STATS_TTL", time.Minute),
		UserpicDir:        getenv("USERPIC_DIR", "./userpics"),
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config %s=%q: %v, using %d", k, v, err, def)
		return def
	}
	return n
}

func getdur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config %s=%q: %v, using %s", k, v, err, def)
		return def
	}
	return d
}

func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
