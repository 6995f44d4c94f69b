package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/assistant"
	"applicant-tracker/internal/assistant/gemini"
	"applicant-tracker/internal/assistant/openai"
	googleauth "applicant-tracker/internal/auth"
	"applicant-tracker/internal/board"
	"applicant-tracker/internal/events"
	"applicant-tracker/internal/files"
	"applicant-tracker/internal/notify"
	"applicant-tracker/internal/recruiters"
	"applicant-tracker/internal/services/health"
	"applicant-tracker/internal/shared/config"
	"applicant-tracker/internal/shared/server"
	"applicant-tracker/internal/shared/storage/db"
	"applicant-tracker/internal/shared/storage/object"
	localstore "applicant-tracker/internal/shared/storage/object/local"
	s3store "applicant-tracker/internal/shared/storage/object/s3"
	"applicant-tracker/internal/shared/telemetry"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Store      object.Store
	Events     events.Publisher
	Assistant  assistant.Assistant
	Relay      *notify.Relay
	Applicants applicants.Store
	Recruiters recruiters.Repo
	Boards     *board.Registry

	closers []io.Closer
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB)
		app.Applicants = &applicants.PGRepo{DB: sqlDB}
		app.Recruiters = &recruiters.PGRepo{DB: sqlDB}
	} else {
		app.Applicants = applicants.NewMemoryRepo()
		app.Recruiters = recruiters.NewMemoryRepo()
	}

	store, local, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	publisher, err := buildEvents(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if c, ok := publisher.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}
	app.Events = publisher

	app.Assistant, err = buildAssistant(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Relay = notify.NewRelay(notify.Config{
		SendGridAPIKey:    cfg.SendGridAPIKey,
		SendGridFromEmail: cfg.SendGridFromEmail,
		TwilioAccountSID:  cfg.TwilioAccountSID,
		TwilioAuthToken:   cfg.TwilioAuthToken,
		TwilioFromPhone:   cfg.TwilioFromPhone,
	})

	app.Boards = board.NewRegistry(app.Applicants, board.Options{
		Objects:          app.Store,
		Events:           app.Events,
		DefaultAvatarURL: cfg.DefaultAvatarURL,
	})

	recruiterSvc := recruiters.NewService(app.Recruiters)
	deps := server.RouterDeps{
		Config:     cfg,
		Health:     health.NewService(pinger(app.DB), cfg.ObjectStoreType, cfg.EventsBackend),
		Board:      board.NewHandler(app.Boards),
		Assistant:  assistant.NewHandler(app.Assistant, app.Boards),
		Notify:     notify.NewHandler(app.Relay),
		Recruiters: recruiters.NewHandler(recruiterSvc),
		GoogleAuth: googleauth.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL, recruiterSvc),
	}
	if local != nil {
		deps.Files = files.NewHandler(local)
	}
	app.Router = server.NewRouter(deps)

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":       cfg.Env,
		"database":  app.DB != nil,
		"objects":   cfg.ObjectStoreType,
		"events":    cfg.EventsBackend,
		"assistant": cfg.AssistantProvider,
	})
	return app, nil
}

// Close releases the database pool and broker connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

// buildStore returns the configured object store and, for the local backend, the concrete
// store so its files route can be mounted.
func buildStore(ctx context.Context, cfg config.Config) (object.Store, *localstore.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("object store: %w", err)
		}
		return store, nil, nil
	default:
		local := localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL+"/api/v1/files", []byte(cfg.SignedURLSecret), object.BucketAvatars)
		return local, local, nil
	}
}

func buildEvents(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "sqs":
		p, err := events.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.EventsSQSQueueURL)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		return p, nil
	case "amqp":
		p, err := events.NewAMQPPublisher(cfg.EventsAMQPURL, cfg.EventsAMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		return p, nil
	case "none":
		return events.Nop{}, nil
	default:
		return events.LogPublisher{}, nil
	}
}

// buildAssistant picks the provider. A missing key disables the assistant instead of
// failing startup; its routes then answer 503.
func buildAssistant(ctx context.Context, cfg config.Config) (assistant.Assistant, error) {
	var (
		a   assistant.Assistant
		err error
	)
	switch cfg.AssistantProvider {
	case "openai":
		a, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.AssistantModel)
	case "gemini":
		a, err = gemini.New(ctx, cfg.GeminiAPIKey, cfg.AssistantModel)
	default:
		return assistant.Disabled{}, nil
	}
	if errors.Is(err, assistant.ErrNotConfigured) {
		telemetry.Warn("bootstrap.assistant_disabled", map[string]any{"provider": cfg.AssistantProvider})
		return assistant.Disabled{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	return a, nil
}

// pinger avoids handing health a typed-nil *sql.DB.
func pinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}
