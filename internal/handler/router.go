package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/clipshare/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           middleware.MetricsRecorder // nilの場合はメトリクスを記録しない
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック
	HealthChecker HealthChecker

	// クリップボード
	ClipboardService ClipboardServiceInterface
	CleanupService   CleanupServiceInterface

	// カード
	CardService CardServiceInterface
	CardLister  CardLister

	// /metrics エンドポイントのハンドラー。nilの場合はルートを登録しない
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → CORSMiddleware → LoggingMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// ヘルスチェックと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Recoveryを最上位に適用（ミドルウェア自身のpanicも拾う）
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	clipboardHandler := NewClipboardHandler(deps.ClipboardService, deps.CardLister)
	cardHandler := NewCardHandler(deps.CardService)
	adminHandler := NewAdminHandler(deps.CleanupService)
	systemHandler := NewSystemHandler(deps.HealthChecker)

	// --- レート制限の外のルート ---

	r.Get("/", systemHandler.Root)
	r.Get("/health", systemHandler.Health)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- レート制限つきのルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// クリップボード管理
		r.Route("/clipboard", func(r chi.Router) {
			// 作成系には作成専用レート制限を追加
			r.With(deps.RateLimiter.CreateMiddleware()).Post("/new", clipboardHandler.CreateClipboard)
			r.With(deps.RateLimiter.CreateMiddleware()).Post("/", clipboardHandler.GetOrCreateClipboard)

			r.Route("/{clipboard_id}", func(r chi.Router) {
				r.Get("/", clipboardHandler.GetClipboard)
				r.Delete("/", clipboardHandler.DeleteClipboard)

				// POST /clipboard/{clipboard_id}/cards - カード追加
				r.Post("/cards", cardHandler.CreateCard)
			})
		})

		// カード管理
		r.Route("/cards/{card_id}", func(r chi.Router) {
			r.Put("/", cardHandler.UpdateCard)
			r.Delete("/", cardHandler.DeleteCard)
		})

		// 保持ポリシーの手動実行
		r.Route("/admin/cleanup", func(r chi.Router) {
			r.Post("/old", adminHandler.CleanupOld)
			r.Post("/empty", adminHandler.CleanupEmpty)
		})
	})

	return r
}
