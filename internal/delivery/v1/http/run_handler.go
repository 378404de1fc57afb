package http

import (
	"net/http"
	"strconv"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

type RunHandler struct {
	launcher usecase.LauncherUC
	prepare  usecase.PrepareUC
	review   usecase.ReviewUC
	publish  usecase.PublishUC
	logger   logger.Logger
}

func NewRunHandler(launcher usecase.LauncherUC, prepare usecase.PrepareUC, review usecase.ReviewUC,
	publish usecase.PublishUC, logger logger.Logger) *RunHandler {
	return &RunHandler{
		launcher: launcher,
		prepare:  prepare,
		review:   review,
		publish:  publish,
		logger:   logger,
	}
}

// fail логирует ошибку с уровнем по классу и пишет ответ.
func (h *RunHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	if code >= http.StatusInternalServerError {
		h.logger.Errorf(err, "%s %s", r.Method, r.URL.Path)
	} else {
		h.logger.Warnf("%d %s %s: %v", code, r.Method, r.URL.Path, err)
	}
	WriteError(w, err)
}

// startPrepare
//
//	@Summary		Запуск подготовки импорта
//	@Description	Проверяет конфигурацию, занимает слот шаблона и запускает подготовку в фоне
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			templateID	path		int					true	"ID шаблона"
//	@Param			request		body		StartPrepareRequest	false	"Переопределение seed URL, режима и лимита"
//	@Success		202			{object}	StartPrepareResponse
//	@Failure		400			{object}	ErrorResponse	"Ошибка конфигурации"
//	@Failure		404			{object}	ErrorResponse	"Шаблон не найден"
//	@Failure		409			{object}	ErrorResponse	"У шаблона уже есть активный запуск"
//	@Router			/templates/{templateID}/prepare [post]
func (h *RunHandler) startPrepare(w http.ResponseWriter, r *http.Request) {
	templateID, err := templateIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req StartPrepareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.launcher.StartPrepare(r.Context(), &usecase.StartPrepareReq{
		TemplateID: templateID,
		SeedURLs:   req.SeedURLs,
		Mode:       req.Mode,
		Limit:      req.Limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, StartPrepareResponse{OK: true, RunID: res.RunID})
}

// getRun
//
//	@Summary	Состояние запуска
//	@Tags		runs
//	@Produce	json
//	@Param		runID	path		string	true	"ID запуска"
//	@Success	200		{object}	RunResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/runs/{runID} [get]
func (h *RunHandler) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.launcher.GetRun(r.Context(), runID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRunResponse(res))
}

// cancelRun
//
//	@Summary	Отмена запуска
//	@Tags		runs
//	@Produce	json
//	@Param		runID	path		string	true	"ID запуска"
//	@Success	200		{object}	OKResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse	"Запуск уже завершён"
//	@Router		/runs/{runID}/cancel [post]
func (h *RunHandler) cancelRun(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.launcher.CancelRun(r.Context(), runID); err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, OKResponse{OK: true})
}

// recomputeDiffs
//
//	@Summary		Пересчёт диффов
//	@Description	Пересчитывает диффы запуска; решения ревьюера сбрасываются
//	@Tags			diffs
//	@Produce		json
//	@Param			runID	path		string	true	"ID запуска"
//	@Success		200		{object}	RecomputeResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/runs/{runID}/diffs/recompute [post]
func (h *RunHandler) recomputeDiffs(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	counts, err := h.prepare.RecomputeDiffs(r.Context(), runID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, RecomputeResponse{OK: true, Diffs: diffCounts(counts)})
}

// listDiffs
//
//	@Summary	Диффы запуска
//	@Tags		diffs
//	@Produce	json
//	@Param		runID		path		string	true	"ID запуска"
//	@Param		type		query		string	false	"add | change | delete | conflict"
//	@Param		resolution	query		string	false	"unresolved | approve | reject"
//	@Param		limit		query		int		false	"Максимум записей"
//	@Success	200			{object}	DiffsResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/runs/{runID}/diffs [get]
func (h *RunHandler) listDiffs(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := usecase.DiffFilter{
		Type:       domain.DiffType(q.Get("type")),
		Resolution: domain.Resolution(q.Get("resolution")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.fail(w, r, e.Wrap("limit", e.ErrInvalidRequestBody))
			return
		}
		filter.Limit = limit
	}

	diffs, err := h.review.ListDiffs(r.Context(), runID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toDiffsResponse(diffs))
}

// approveAdds
//
//	@Summary		Массовое одобрение add-диффов
//	@Description	Без all одобряет только неразрешённые add-диффы, с all=1 также отменяет отклонения
//	@Tags			review
//	@Produce		json
//	@Param			runID	path		string	true	"ID запуска"
//	@Param			all		query		string	false	"1, чтобы переопределить отклонённые"
//	@Success		200		{object}	ApproveAddsResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/runs/{runID}/approve-adds [post]
func (h *RunHandler) approveAdds(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.review.ApproveAdds(r.Context(), runID, queryFlag(r, "all"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, ApproveAddsResponse{OK: true, Updated: res.Updated, Totals: res.Totals, All: res.All})
}

// approve
//
//	@Summary	Одобрение выбранных диффов
//	@Tags		review
//	@Accept		json
//	@Produce	json
//	@Param		runID	path		string		true	"ID запуска"
//	@Param		request	body		IDsRequest	true	"ID диффов"
//	@Success	200		{object}	ApproveResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/runs/{runID}/approve [post]
func (h *RunHandler) approve(w http.ResponseWriter, r *http.Request) {
	runID, ids, ok := h.idsRequest(w, r)
	if !ok {
		return
	}

	n, err := h.review.ApproveSelected(r.Context(), runID, ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, ApproveResponse{OK: true, ApprovedCount: n})
}

// reject
//
//	@Summary	Отклонение выбранных диффов
//	@Tags		review
//	@Accept		json
//	@Produce	json
//	@Param		runID	path		string		true	"ID запуска"
//	@Param		request	body		IDsRequest	true	"ID диффов"
//	@Success	200		{object}	RejectResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/runs/{runID}/reject [post]
func (h *RunHandler) reject(w http.ResponseWriter, r *http.Request) {
	runID, ids, ok := h.idsRequest(w, r)
	if !ok {
		return
	}

	n, err := h.review.RejectSelected(r.Context(), runID, ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, RejectResponse{OK: true, RejectedCount: n})
}

func (h *RunHandler) idsRequest(w http.ResponseWriter, r *http.Request) (string, []string, bool) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return "", nil, false
	}

	var req IDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return "", nil, false
	}

	return runID, req.IDs, true
}

// publishRun
//
//	@Summary		Публикация одобренных диффов
//	@Description	Применяет одобренные диффы к внешнему каталогу; ошибка одного товара не прерывает публикацию
//	@Tags			publish
//	@Accept			json
//	@Produce		json
//	@Param			runID	path		string			true	"ID запуска"
//	@Param			request	body		PublishRequest	false	"dryRun: только посчитать без изменений"
//	@Success		200		{object}	PublishResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"Запуск не в статусе staged"
//	@Router			/runs/{runID}/publish [post]
func (h *RunHandler) publishRun(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req PublishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.publish.PublishRun(r.Context(), &usecase.PublishReq{RunID: runID, DryRun: req.DryRun})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toPublishResponse(res))
}
