package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/account"
	"secknow-backend/internal/assets"
	googleauth "secknow-backend/internal/auth"
	"secknow-backend/internal/library"
	"secknow-backend/internal/shared/config"
	"secknow-backend/internal/shared/server"
	"secknow-backend/internal/shared/server/middleware"
	"secknow-backend/internal/shared/storage/db"
	"secknow-backend/internal/suggestions"
	"secknow-backend/internal/users"
	"secknow-backend/internal/workspaces"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	Engine *suggestions.Engine
	Hub    *suggestions.Hub

	WorkspacesService *workspaces.Service
	LibraryService    *library.Service
	AssetsService     *assets.Service
	UsersService      *users.Service
	AccountService    *account.Service
}

// Build loads rules, picks repositories and wires services, handlers and the router.
// Callers own the returned App and must call Close.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	rules, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := suggestions.NewEngine(rules)
	hubOpts := suggestions.DefaultOptions()
	if cfg.SuggestionDebounce > 0 {
		hubOpts.Debounce = cfg.SuggestionDebounce
	}
	if cfg.SuggestionMax > 0 {
		hubOpts.MaxSuggestions = cfg.SuggestionMax
	}
	hub := suggestions.NewHub(engine, hubOpts)

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Engine: engine,
		Hub:    hub,
	}
	handlers := buildServices(app)

	deps := server.RouterDeps{
		Config:   cfg,
		Hub:      hub,
		Limiter:  middleware.NewRateLimiter(nil),
		Handlers: handlers,
	}
	if sqlDB != nil {
		deps.DB = sqlDB
	}
	app.Router = server.NewRouter(deps)

	log.Printf("bootstrap: %d suggestion rules loaded, storage=%s", rules.Len(), storageName(sqlDB))
	return app, nil
}

// Close stops live suggestion consumers and releases the database pool.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func loadRules(cfg config.Config) (*suggestions.RuleTable, error) {
	if path := strings.TrimSpace(cfg.SuggestionRulesFile); path != "" {
		rules, err := suggestions.LoadRulesFile(path)
		if err != nil {
			return nil, fmt.Errorf("load suggestion rules %s: %w", path, err)
		}
		return rules, nil
	}
	rules, err := suggestions.DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("load default suggestion rules: %w", err)
	}
	return rules, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.UsesMemoryStore() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildServices(app *App) []server.RouteRegistrar {
	var (
		wsRepo    workspaces.Repo
		libRepo   library.Repo
		assetRepo assets.Repo
		userRepo  users.Repo
	)
	if app.DB != nil {
		wsRepo = &workspaces.PGRepo{DB: app.DB}
		libRepo = &library.PGRepo{DB: app.DB}
		assetRepo = &assets.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		wsRepo = workspaces.NewMemoryRepo()
		libRepo = library.NewMemoryRepo()
		assetRepo = assets.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	wsSvc := workspaces.NewService(wsRepo)
	libSvc := library.NewService(libRepo, wsSvc)
	assetSvc := assets.NewService(assetRepo, wsSvc, libSvc, app.Hub)

	// Assets go first so hub consumers are dropped before their library items disappear.
	wsSvc.Notify(assetSvc)
	wsSvc.Notify(libSvc)
	libSvc.Watch(assetSvc)

	userSvc := users.NewService(userRepo)
	accountSvc := account.NewService(wsSvc)

	app.WorkspacesService = wsSvc
	app.LibraryService = libSvc
	app.AssetsService = assetSvc
	app.UsersService = userSvc
	app.AccountService = accountSvc

	return []server.RouteRegistrar{
		googleauth.NewGoogleService(
			app.Config.GoogleClientID,
			app.Config.GoogleClientSecret,
			app.Config.GoogleRedirectURL,
			app.Config.UIRedirectURL,
			userSvc,
		),
		users.NewHandler(userSvc),
		account.NewHandler(accountSvc),
		workspaces.NewHandler(wsSvc),
		library.NewHandler(libSvc),
		assets.NewHandler(assetSvc),
		suggestions.NewHandler(app.Engine, app.Hub, assetSvc, app.Config.SuggestionMax),
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func storageName(sqlDB *sql.DB) string {
	if sqlDB == nil {
		return "memory"
	}
	return "postgres"
}
