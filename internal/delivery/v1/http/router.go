package http

import (
	_ "github.com/DRSN-tech/catalog-importer/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(launcher usecase.LauncherUC, prepare usecase.PrepareUC, review usecase.ReviewUC, publish usecase.PublishUC) {
	r.router.Use(middleware.RequestID, middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		h := NewRunHandler(launcher, prepare, review, publish, r.logger)
		registerTemplateRoutes(v1, h)
		registerRunRoutes(v1, h)
	})
}

func registerTemplateRoutes(router chi.Router, h *RunHandler) {
	router.Route("/templates/{templateID}", func(tr chi.Router) {
		tr.Post("/prepare", h.startPrepare)
	})
}

func registerRunRoutes(router chi.Router, h *RunHandler) {
	router.Route("/runs/{runID}", func(rr chi.Router) {
		rr.Get("/", h.getRun)
		rr.Post("/cancel", h.cancelRun)
		rr.Get("/diffs", h.listDiffs)
		rr.Post("/diffs/recompute", h.recomputeDiffs)
		rr.Post("/approve-adds", h.approveAdds)
		rr.Post("/approve", h.approve)
		rr.Post("/reject", h.reject)
		rr.Post("/publish", h.publishRun)
	})
}
