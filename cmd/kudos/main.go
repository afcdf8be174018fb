package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/abarnes/kudos/internal/app"
	"github.com/abarnes/kudos/internal/auth"
	"github.com/abarnes/kudos/internal/logger"
)

var version = "dev"

func main() {
	port := flag.Int("port", 8080, "HTTP port to listen on")
	dbPath := flag.String("db", "kudos.db", "Path to SQLite database file")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	jwtSecret := flag.String("secret", "", "JWT signing secret (defaults to KUDOS_JWT_SECRET, then a random value)")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "Lifetime of issued auth tokens")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `kudos - awards nomination backend

Usage:
  kudos [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), `
Examples:
  kudos                         # Run on port 8080 with kudos.db
  kudos -port 9000              # Run on port 9000
  kudos -db /data/awards.db     # Use custom database path
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("kudos %s\n", version)
		os.Exit(0)
	}

	secret := *jwtSecret
	if secret == "" {
		secret = os.Getenv("KUDOS_JWT_SECRET")
	}
	if secret == "" {
		secret = randomSecret()
		fmt.Println("No JWT secret configured; generated an ephemeral one. Tokens will not survive restarts.")
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))
	tokens := auth.NewManager(secret, *tokenTTL)

	a, err := app.New(appLog, *dbPath, tokens)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", *port)
	appLog.Info("Server starting", "addr", addr, "db", *dbPath)
	if err := http.ListenAndServe(addr, a.Router()); err != nil {
		log.Fatal(err)
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("Failed to generate secret:", err)
	}
	return hex.EncodeToString(buf)
}
