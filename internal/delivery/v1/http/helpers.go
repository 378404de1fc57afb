package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const maxRequestBody = 1 << 20

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, reason, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// ToHTTPResponse сопоставляет ошибку usecase-слоя со статусом HTTP.
// Текст внутренних ошибок наружу не отдаётся.
func ToHTTPResponse(err error) (int, string) {
	switch {
	case e.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, e.ErrNotFound.Error()
	case e.IsConflict(err):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	reason := e.Reason(err)
	if code == http.StatusInternalServerError {
		reason = "internal"
	}
	WriteSuccess(w, code, NewErrorResponse(code, reason, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса. Пустое тело оставляет dst без изменений.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidRequestBody, err))
	}

	return nil
}

func runIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "runID"))
	if id == "" {
		return "", e.Wrap("runID", e.ErrInvalidRequestBody)
	}
	return id, nil
}

func templateIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, e.Wrap("templateID", e.ErrInvalidRequestBody)
	}
	return id, nil
}

// queryFlag понимает 1/true/yes.
func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
