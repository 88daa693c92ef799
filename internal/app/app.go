// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/clipshare/internal/card"
	"github.com/hitoshi/clipshare/internal/clipboard"
	"github.com/hitoshi/clipshare/internal/config"
	"github.com/hitoshi/clipshare/internal/database"
	"github.com/hitoshi/clipshare/internal/handler"
	"github.com/hitoshi/clipshare/internal/logger"
	"github.com/hitoshi/clipshare/internal/metrics"
	"github.com/hitoshi/clipshare/internal/middleware"
	"github.com/hitoshi/clipshare/internal/model"
	"github.com/hitoshi/clipshare/internal/repository"
	"github.com/hitoshi/clipshare/internal/shortid"
	"github.com/hitoshi/clipshare/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envファイルを読み込み（存在しなくてもよい）、JSON構造化ログをセットアップし、
// 環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envファイルの読み込み（ローカル開発用。本番では環境変数を直接使う）
	_ = godotenv.Load()

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandCleanup:
		return runCleanup(w, cfg, args[1:])
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	clipboardRepo := repository.NewPostgresClipboardRepo(db)
	cardRepo := repository.NewPostgresCardRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	generator := shortid.NewGenerator(nil)
	clipboardService := clipboard.NewService(clipboardRepo, generator, slog.Default(), collector)
	cardService := card.NewService(cardRepo, clipboardRepo, collector)

	// 5. レートリミッターの構築（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		CreateRate:      rate.Limit(float64(cfg.RateLimitCreate) / 60.0),
		CreateBurst:     cfg.RateLimitCreate,
		CleanupInterval: 5 * time.Minute,
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker: db,

		ClipboardService: clipboardService,
		CleanupService:   clipboardService,

		CardService: cardService,
		CardLister:  cardService,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は保持ポリシーの定期実行ワーカーとして起動する。
// 起動直後に1回実行し、以後CLEANUP_INTERVAL間隔で繰り返す。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. サービスとジョブの初期化
	clipboardRepo := repository.NewPostgresClipboardRepo(db)
	generator := shortid.NewGenerator(nil)
	clipboardService := clipboard.NewService(clipboardRepo, generator, slog.Default(), nil)

	job := cleanup.NewJob(clipboardService, slog.Default())
	job.IdleThreshold = time.Duration(cfg.CleanupIdleDays) * 24 * time.Hour

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("idle_days", cfg.CleanupIdleDays),
	)

	// 起動直後に1回実行
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runCleanup は保持ポリシーを1回だけ実行するCLIモード。
// --idle N でN日以上アクセスのないクリップボードを、--empty で
// カードを持たないクリップボードを削除する。--all は両方を適用する。
// --dry-run は削除せず候補を最大5件まで表示する。
func runCleanup(w io.Writer, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(w)

	idleDays := fs.Int("idle", 0, "delete clipboards not accessed for N days")
	empty := fs.Bool("empty", false, "delete clipboards that have no cards")
	all := fs.Bool("all", false, "apply both policies with the default idle threshold")
	dryRun := fs.Bool("dry-run", false, "list candidates without deleting")

	if err := fs.Parse(args); err != nil {
		return err
	}

	runIdle := *idleDays > 0 || *all
	runEmpty := *empty || *all
	if !runIdle && !runEmpty {
		fmt.Fprintln(w, "nothing to do: specify --idle N, --empty, or --all")
		fs.Usage()
		return fmt.Errorf("no cleanup policy selected")
	}

	days := *idleDays
	if days <= 0 {
		days = cfg.CleanupIdleDays
	}
	threshold := time.Duration(days) * 24 * time.Hour

	// DB接続とサービスのワイヤリング
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	clipboardRepo := repository.NewPostgresClipboardRepo(db)
	generator := shortid.NewGenerator(nil)
	service := clipboard.NewService(clipboardRepo, generator, slog.Default(), nil)

	ctx := context.Background()

	if *dryRun {
		if runIdle {
			candidates, err := service.ListIdleCandidates(ctx, threshold)
			if err != nil {
				return fmt.Errorf("failed to list idle candidates: %w", err)
			}
			printCandidates(w, fmt.Sprintf("idle (> %d days)", days), candidates)
		}
		if runEmpty {
			candidates, err := service.ListEmptyCandidates(ctx)
			if err != nil {
				return fmt.Errorf("failed to list empty candidates: %w", err)
			}
			printCandidates(w, "empty", candidates)
		}
		fmt.Fprintln(w, "dry run: nothing deleted")
		return nil
	}

	if runIdle {
		deleted, err := service.CleanupIdle(ctx, threshold)
		if err != nil {
			return fmt.Errorf("idle cleanup failed: %w", err)
		}
		fmt.Fprintf(w, "idle cleanup: deleted %d clipboard(s) not accessed for %d days\n", deleted, days)
	}

	if runEmpty {
		deleted, err := service.CleanupEmpty(ctx)
		if err != nil {
			return fmt.Errorf("empty cleanup failed: %w", err)
		}
		fmt.Fprintf(w, "empty cleanup: deleted %d clipboard(s)\n", deleted)
	}

	return nil
}

// printCandidates は削除候補を最大5件まで表示する。
func printCandidates(w io.Writer, policy string, candidates []*model.Clipboard) {
	fmt.Fprintf(w, "%s: %d candidate(s)\n", policy, len(candidates))
	for i, c := range candidates {
		if i >= 5 {
			fmt.Fprintf(w, "  ... and %d more\n", len(candidates)-5)
			break
		}
		fmt.Fprintf(w, "  %s (last accessed %s)\n", c.ID, c.LastAccessed.Format(time.RFC3339))
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
