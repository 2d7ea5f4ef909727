package cmd

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/audit"
	auditPostgres "github.com/frahmantamala/client-portal/internal/audit/postgres"
	"github.com/frahmantamala/client-portal/internal/auth"
	authPostgres "github.com/frahmantamala/client-portal/internal/auth/postgres"
	"github.com/frahmantamala/client-portal/internal/core/events"
	"github.com/frahmantamala/client-portal/internal/cryptox"
	"github.com/frahmantamala/client-portal/internal/dashboard"
	"github.com/frahmantamala/client-portal/internal/messaging"
	messagingPostgres "github.com/frahmantamala/client-portal/internal/messaging/postgres"
	"github.com/frahmantamala/client-portal/internal/phi"
	phiPostgres "github.com/frahmantamala/client-portal/internal/phi/postgres"
	"github.com/frahmantamala/client-portal/internal/project"
	projectPostgres "github.com/frahmantamala/client-portal/internal/project/postgres"
	"github.com/frahmantamala/client-portal/internal/transport"
	"github.com/frahmantamala/client-portal/internal/transport/middleware"
	"github.com/frahmantamala/client-portal/internal/transport/rest"
	"github.com/frahmantamala/client-portal/internal/upload"
	"github.com/frahmantamala/client-portal/internal/user"
	userPostgres "github.com/frahmantamala/client-portal/internal/user/postgres"
	"github.com/frahmantamala/client-portal/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// App holds every long-lived component of the portal.
type App struct {
	Config *internal.Config
	Logger *slog.Logger

	DB    *gorm.DB
	SQL   *sql.DB
	SQLX  *sqlx.DB
	Bus   *events.EventBus
	Audit *audit.Service

	Codec    *cryptox.Codec
	Registry *upload.Registry
	Stager   *upload.Stager

	Auth      *auth.Service
	Users     *user.Service
	Projects  *project.Service
	Messaging *messaging.Service
	PHI       *phi.Service
	Dashboard *dashboard.Service
}

func newApp(cfg *internal.Config) (*App, error) {
	logger.InitWithLevel(cfg.Env, cfg.Logging.Level)
	lg := logger.LoggerWrapper()

	gdb, err := openDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: lg,
		DB:     gdb,
		SQL:    sqlDB,
		SQLX:   sqlx.NewDb(sqlDB, sqlxDriver(cfg.Database.Driver)),
		Bus:    events.NewEventBus(lg),
	}

	app.Audit = audit.NewService(auditPostgres.NewAuditRepository(app.SQLX), lg, cfg.Audit.QueueSize, cfg.Audit.Retention)

	key, fallback := cfg.Security.ResolvedEncryptionKey()
	if fallback {
		lg.Warn("using the built-in encryption key; set security.encryption_key before handling real data")
	}
	if app.Codec, err = cryptox.New(key); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build codec: %w", err)
	}

	app.Registry = upload.NewRegistry(upload.LimitsFromConfig(cfg.Upload), upload.Deps{
		Encoder:  app.Codec,
		Recorder: app.Audit,
		Bus:      app.Bus,
		Logger:   lg,
	})
	if app.Stager, err = upload.NewStager(afero.NewOsFs(), cfg.Upload.StagingDir); err != nil {
		app.Close()
		return nil, err
	}

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	app.Auth = auth.NewService(authPostgres.NewRepository(gdb), tokens, cfg.Security.BCryptCost)
	app.Users = user.NewService(userPostgres.NewUserRepository(gdb), app.Auth, lg)

	app.Projects = project.NewService(projectPostgres.NewProjectRepository(gdb), app.Registry, lg)
	app.Projects.RegisterEventHandlers(app.Bus)

	app.Messaging = messaging.NewService(messagingPostgres.NewMessageRepository(gdb), lg)
	app.PHI = phi.NewService(phiPostgres.NewRecordRepository(gdb), app.Codec, app.Audit, lg)
	app.Dashboard = dashboard.NewService(app.Projects, app.Messaging, app.Audit, lg)

	return app, nil
}

// Handlers assembles the HTTP surface.
func (a *App) Handlers() rest.Handlers {
	base := transport.NewBaseHandler(a.Logger)
	return rest.Handlers{
		Health:    rest.NewHealthHandler(a.SQL, a.Config.Database.Driver),
		Views:     rest.NewViewHandler(base, a.Config),
		Auth:      auth.NewHandler(base, a.Auth, a.Users),
		User:      user.NewHandler(base, a.Users),
		Dashboard: dashboard.NewHandler(base, a.Dashboard),
		Project:   project.NewHandler(base, a.Projects),
		Upload:    project.NewUploadHandler(base, a.Projects, a.Registry, a.Stager),
		Messaging: messaging.NewHandler(base, a.Messaging),
		PHI:       phi.NewHandler(base, a.PHI),
		Audit:     audit.NewHandler(base, a.Audit),
	}
}

func (a *App) Validator() (*middleware.OpenAPIValidator, error) {
	if a.Config.Server.OpenAPIPath == "" {
		return nil, nil
	}
	return middleware.NewOpenAPIValidator(a.Config.Server.OpenAPIPath, rest.APIBasePath, a.Logger)
}

// Close drains the audit queue and the event bus before releasing the database.
func (a *App) Close() {
	if a.Audit != nil {
		a.Audit.Close()
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

func openDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Source)
	case "sqlite":
		dialector = sqlite.Open(cfg.Source)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return gdb, nil
}

func sqlxDriver(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return "pgx"
}
