package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/educareplus/titinauta/internal/api"
	"github.com/educareplus/titinauta/internal/dialog"
	"github.com/educareplus/titinauta/internal/educare"
	"github.com/educareplus/titinauta/internal/genai"
	"github.com/educareplus/titinauta/internal/messaging"
	"github.com/educareplus/titinauta/internal/session"
	"github.com/educareplus/titinauta/internal/twiliowhatsapp"
	"github.com/educareplus/titinauta/internal/util"
	"github.com/educareplus/titinauta/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for TitiNauta state data
	DefaultStateDir = "/var/lib/titinauta"
	// DefaultDBFileName is the default SQLite database filename for sessions
	DefaultDBFileName = "titinauta.db"
	// DefaultWhatsAppDBFileName is the default SQLite database filename for whatsmeow
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// ShutdownTimeout bounds graceful shutdown of the API server
	ShutdownTimeout = 10 * time.Second
)

// Messaging backend names
const (
	BackendWhatsmeow = "whatsmeow"
	BackendTwilio    = "twilio"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(flags); err != nil {
		slog.Error("TitiNauta failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("TitiNauta exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir       string
	SessionDSN     string
	WhatsAppDSN    string
	EducareURL     string
	EducareKey     string
	EducareTimeout time.Duration
	OpenAIKey      string
	GenAIEnabled   bool
	APIAddr        string
	WebhookToken   string
	Backend        string
	Debug          bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput     *string
	numeric      *bool
	stateDir     *string
	dbDSN        *string
	waDSN        *string
	educareURL   *string
	educareKey   *string
	openaiKey    *string
	genaiEnabled *bool
	apiAddr      *string
	webhookToken *string
	backend      *string

	educareTimeout time.Duration
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("TITINAUTA_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:       os.Getenv("TITINAUTA_STATE_DIR"),
		SessionDSN:     os.Getenv("DATABASE_URL"),
		WhatsAppDSN:    os.Getenv("WHATSAPP_DB_DSN"),
		EducareURL:     os.Getenv("EDUCARE_API_URL"),
		EducareKey:     os.Getenv("EDUCARE_API_KEY"),
		EducareTimeout: util.ParseDurationEnv("EDUCARE_API_TIMEOUT", educare.DefaultRequestTimeout),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		GenAIEnabled:   util.ParseBoolEnv("TITINAUTA_GENAI_ENABLED", false),
		APIAddr:        os.Getenv("API_ADDR"),
		WebhookToken:   os.Getenv("WEBHOOK_TOKEN"),
		Backend:        os.Getenv("MESSAGING_BACKEND"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No TITINAUTA_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.Backend == "" {
		config.Backend = BackendWhatsmeow
	}

	slog.Debug("environment variables loaded",
		"TITINAUTA_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.SessionDSN != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"EDUCARE_API_URL_SET", config.EducareURL != "",
		"EDUCARE_API_KEY_SET", config.EducareKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TITINAUTA_GENAI_ENABLED", config.GenAIEnabled,
		"API_ADDR", config.APIAddr,
		"MESSAGING_BACKEND", config.Backend)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:     flag.String("qr-output", "", "path to write login QR code"),
		numeric:      flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for TitiNauta data (overrides $TITINAUTA_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.SessionDSN, "session database DSN (overrides $DATABASE_URL)"),
		waDSN:        flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow database DSN (overrides $WHATSAPP_DB_DSN)"),
		educareURL:   flag.String("educare-url", config.EducareURL, "Educare API base URL (overrides $EDUCARE_API_URL)"),
		educareKey:   flag.String("educare-key", config.EducareKey, "Educare API key (overrides $EDUCARE_API_KEY)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the chat responder (overrides $OPENAI_API_KEY)"),
		genaiEnabled: flag.Bool("genai", config.GenAIEnabled, "enable the GenAI chat responder (overrides $TITINAUTA_GENAI_ENABLED)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		webhookToken: flag.String("webhook-token", config.WebhookToken, "shared secret for webhook calls (overrides $WEBHOOK_TOKEN)"),
		backend:      flag.String("messaging", config.Backend, "messaging backend: whatsmeow or twilio (overrides $MESSAGING_BACKEND)"),

		educareTimeout: config.EducareTimeout,
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"waDSN_set", *flags.waDSN != "",
		"educareURL_set", *flags.educareURL != "",
		"genaiEnabled", *flags.genaiEnabled,
		"apiAddr", *flags.apiAddr,
		"backend", *flags.backend)

	return flags
}

// resolveDataSourceDefaults fills in DSNs not set by env or flag. Deferred
// until after flag parsing so a -state-dir override moves the SQLite files.
// Defaults: sessions in <stateDir>/titinauta.db; whatsmeow shares a Postgres
// session DSN, otherwise gets its own SQLite file in the state directory.
func resolveDataSourceDefaults(stateDir, sessionDSN, whatsappDSN string) (string, string) {
	if sessionDSN == "" {
		sessionDSN = filepath.Join(stateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", sessionDSN)
	}
	if whatsappDSN == "" {
		if session.DetectDSNType(sessionDSN) == "postgres" {
			whatsappDSN = sessionDSN
		} else {
			whatsappDSN = filepath.Join(stateDir, DefaultWhatsAppDBFileName)
		}
	}
	return sessionDSN, whatsappDSN
}

// buildSessionStore opens the session store matching the DSN type.
func buildSessionStore(dsn string) (session.Store, error) {
	if session.DetectDSNType(dsn) == "postgres" {
		return session.NewPostgresStore(session.WithDSN(dsn))
	}
	return session.NewSQLiteStore(session.WithDSN(dsn))
}

// buildMessagingService constructs the configured delivery backend.
func buildMessagingService(flags Flags, whatsappDSN string) (messaging.Service, error) {
	switch *flags.backend {
	case BackendTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil
	default:
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(whatsappDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil
	}
}

// run wires all modules together and serves until interrupted.
func run(flags Flags) error {
	slog.Info("Bootstrapping TitiNauta with configured modules")

	sessionDSN, whatsappDSN := resolveDataSourceDefaults(*flags.stateDir, *flags.dbDSN, *flags.waDSN)

	store, err := buildSessionStore(sessionDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	gateway, err := educare.NewClient(
		educare.WithBaseURL(*flags.educareURL),
		educare.WithAPIKey(*flags.educareKey),
		educare.WithTimeout(flags.educareTimeout),
	)
	if err != nil {
		return err
	}

	var engineOpts []dialog.EngineOption
	if *flags.genaiEnabled && *flags.openaiKey != "" {
		responder, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, dialog.WithChatResponder(responder))
		slog.Info("GenAI chat responder enabled")
	}

	engine := dialog.NewEngine(store, gateway, engineOpts...)

	msgService, err := buildMessagingService(flags, whatsappDSN)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := msgService.Start(ctx); err != nil {
		return err
	}
	defer msgService.Stop()

	responder := messaging.NewJourneyResponder(msgService, engine)
	responder.Start(ctx)

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.webhookToken != "" {
		apiOpts = append(apiOpts, api.WithWebhookToken(*flags.webhookToken))
	}
	server := api.NewServer(engine, msgService, store, apiOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
