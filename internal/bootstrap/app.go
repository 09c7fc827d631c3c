package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/analyses"
	"boneai-backend/internal/chat"
	"boneai-backend/internal/llm"
	"boneai-backend/internal/llm/openai"
	"boneai-backend/internal/mail"
	"boneai-backend/internal/mail/resend"
	"boneai-backend/internal/report"
	"boneai-backend/internal/share"
	"boneai-backend/internal/shared/auth"
	"boneai-backend/internal/shared/config"
	"boneai-backend/internal/shared/server"
	"boneai-backend/internal/shared/storage/db"
	"boneai-backend/internal/shared/storage/object"
	localstore "boneai-backend/internal/shared/storage/object/local"
	miniostore "boneai-backend/internal/shared/storage/object/minio"
	s3store "boneai-backend/internal/shared/storage/object/s3"
	"boneai-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Dialect         db.Dialect
	Images          object.ImageStore
	LLM             llm.Client
	Mail            mail.Sender
	Verifier        *auth.Verifier
	AnalysesRepo    analyses.Repo
	ChatRepo        chat.Repo
	AnalysesService *analyses.Service
	ChatService     *chat.Service
	Renderer        *report.Renderer
	Relay           *share.Relay
	AnalysisHandler *analyses.Handler
	ChatHandler     *chat.Handler
	ReportHandler   *report.Handler
	ShareHandler    *share.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	dialect := db.ParseDialect(cfg.DatabaseDriver)
	sqlDB, err := buildDB(ctx, cfg, dialect)
	if err != nil {
		return nil, err
	}

	images, err := BuildImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := BuildLLM(cfg)
	if err != nil {
		return nil, err
	}

	sender, err := BuildMailSender(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Dialect:  dialect,
		Images:   images,
		LLM:      llmClient,
		Mail:     sender,
		Verifier: verifier,
	}
	buildServices(app)

	deps := server.RouterDeps{
		Config:          app.Config,
		Verifier:        app.Verifier,
		AnalysisHandler: app.AnalysisHandler,
		ChatHandler:     app.ChatHandler,
		ReportHandler:   app.ReportHandler,
		ShareHandler:    app.ShareHandler,
	}
	if cfg.ObjectStoreType == "local" {
		deps.LocalImages = images
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, dialect db.Dialect) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, dialect, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, dialect, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{
				"fallback": "memory",
				"error":    err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
			telemetry.Warn("bootstrap.migrations_failed", map[string]any{"error": err.Error()})
		}
	}
	return sqlDB, nil
}

// BuildImageStore returns the configured bucket-scoped image store.
func BuildImageStore(ctx context.Context, cfg config.Config) (object.ImageStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:        cfg.AWSRegion,
			Bucket:        cfg.ImagesBucket,
			Prefix:        cfg.S3Prefix,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	case "minio":
		return miniostore.New(miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.ImagesBucket,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.ImagesBucket, cfg.PublicBaseURL), nil
	}
}

// ReportImageHosts returns the hosts the report renderer may fetch images
// from: the public host of the configured object store plus REPORT_IMAGE_HOSTS.
func ReportImageHosts(cfg config.Config) []string {
	var hosts []string
	switch cfg.ObjectStoreType {
	case "s3":
		if cfg.S3PublicBaseURL != "" {
			hosts = append(hosts, hostOf(cfg.S3PublicBaseURL))
		} else {
			region := cfg.AWSRegion
			if region == "" {
				region = "us-east-1"
			}
			hosts = append(hosts, fmt.Sprintf("%s.s3.%s.amazonaws.com", cfg.ImagesBucket, region))
		}
	case "minio":
		hosts = append(hosts, hostOf(cfg.MinioEndpoint))
	default:
		hosts = append(hosts, hostOf(cfg.PublicBaseURL))
	}
	hosts = append(hosts, cfg.ReportImageHosts...)

	out := hosts[:0]
	for _, h := range hosts {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// BuildLLM returns the configured model client, or a placeholder when no key is set.
func BuildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" || strings.TrimSpace(cfg.LLMAPIKey) == "" {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(openai.Config{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	})
}

// BuildMailSender returns the configured email sender, or a placeholder when no key is set.
func BuildMailSender(cfg config.Config) (mail.Sender, error) {
	if cfg.MailProvider != "resend" || strings.TrimSpace(cfg.ResendAPIKey) == "" {
		telemetry.Warn("bootstrap.mail_placeholder", map[string]any{"provider": cfg.MailProvider})
		return mail.PlaceholderSender{}, nil
	}
	return resend.New(resend.Options{APIKey: cfg.ResendAPIKey, From: cfg.MailFrom})
}

func buildServices(app *App) {
	var analysesRepo analyses.Repo
	var chatRepo chat.Repo
	if app.DB != nil {
		analysesRepo = &analyses.SQLRepo{DB: app.DB, Dialect: app.Dialect}
		chatRepo = &chat.SQLRepo{DB: app.DB, Dialect: app.Dialect}
	} else {
		analysesRepo = analyses.NewMemoryRepo()
		chatRepo = chat.NewMemoryRepo()
	}

	analysesSvc := &analyses.Service{
		LLM:     app.LLM,
		Gateway: &analyses.Gateway{Store: app.Images, Repo: analysesRepo},
		Repo:    analysesRepo,
	}
	chatSvc := &chat.Service{LLM: app.LLM, Repo: chatRepo}
	renderer := report.NewRenderer(app.Config.ReportImageTimeout, ReportImageHosts(app.Config)...)
	relay := &share.Relay{Sender: app.Mail, From: app.Config.MailFrom}

	analysisHandler := analyses.NewHandler(analysesSvc)

	app.AnalysesRepo = analysesRepo
	app.ChatRepo = chatRepo
	app.AnalysesService = analysesSvc
	app.ChatService = chatSvc
	app.Renderer = renderer
	app.Relay = relay
	app.AnalysisHandler = analysisHandler
	app.ChatHandler = chat.NewHandler(chatSvc)
	app.ReportHandler = report.NewHandler(renderer, analysisHandler)
	app.ShareHandler = share.NewHandler(relay, renderer, analysisHandler)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
