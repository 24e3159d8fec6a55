// Command pagelensd runs the pagelens backend daemon: the local HTTP surface
// the browser extension shell talks to.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/llm"
	"github.com/pagelens/pagelens/internal/monitoring"
	"github.com/pagelens/pagelens/internal/orchestrator"
	"github.com/pagelens/pagelens/internal/server"
	"github.com/pagelens/pagelens/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve", "start":
			runServe(os.Args[2:])
			return
		case "setup":
			runSetup(os.Args[2:])
			return
		case "version", "-v", "--version":
			fmt.Printf("pagelensd %s\n", Version)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}
	runServe(os.Args[1:])
}

// loadEnvFiles loads .env from the config directory, then the working
// directory (which can override).
func loadEnvFiles() {
	if home, err := os.UserHomeDir(); err == nil {
		configEnv := filepath.Join(home, ".config", "pagelens", ".env")
		if _, err := os.Stat(configEnv); err == nil {
			_ = godotenv.Load(configEnv)
		}
	}
	_ = godotenv.Load()
}

func runServe(args []string) {
	loadEnvFiles()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagelensd: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	monitoring.SetGlobal(cfg.Logging)
	logger := monitoring.NewLogger(cfg.Logging)

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	registry := llm.NewRegistry()
	orch := orchestrator.New(st, registry, logger)
	srv := server.New(cfg, orch, st, registry, logger)

	log.Info().
		Str("version", Version).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Path).
		Msg("pagelensd starting")

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("pagelensd stopped")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Path == ":memory:" {
		return store.NewMemoryStore(), nil
	}
	return store.OpenSQLite(cfg.Store.Path)
}

// runSetup interactively stores a provider API key without echoing it.
func runSetup(args []string) {
	loadEnvFiles()

	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	provider := fs.String("provider", "", "provider to configure (openai, anthropic, deepseek, custom)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagelensd: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagelensd: failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	name := *provider
	if name == "" {
		fmt.Print("Provider (openai, anthropic, deepseek, custom): ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		name = strings.TrimSpace(line)
	}

	registry := llm.NewRegistry()
	if _, err := registry.Get(name); err != nil {
		fmt.Fprintf(os.Stderr, "pagelensd: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key for %s (input hidden): ", name)
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagelensd: failed to read key: %v\n", err)
		os.Exit(1)
	}

	if err := st.SaveCredential(name, strings.TrimSpace(string(key))); err != nil {
		fmt.Fprintf(os.Stderr, "pagelensd: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Stored API key for %s.\n", name)
}

func printHelp() {
	fmt.Println("pagelensd - backend daemon for the pagelens browser extension")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagelensd [serve] [options]")
	fmt.Println("  pagelensd setup [-provider NAME]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve        Start the local backend (default)")
	fmt.Println("  setup        Store a provider API key interactively")
	fmt.Println("  version      Print version information")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config FILE   Daemon config file (YAML)")
	fmt.Println("  -debug         Enable debug logging")
}
