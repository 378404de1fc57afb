package domain

import "time"

// LogType — тип записи журнала импорта в формате <phase>:<event>.
type LogType string

const (
	LogLauncherStart    LogType = "launcher:start"
	LogLauncherCancel   LogType = "launcher:cancel"
	LogPrepareDiscovery LogType = "prepare:discovery"
	LogPrepareScope     LogType = "prepare:scope"
	LogPrepareReport    LogType = "prepare:report"
	LogPrepareError     LogType = "prepare:error"
	LogDiffRecompute    LogType = "diff:recompute"
	LogReviewApprove    LogType = "review:approve"
	LogReviewReject     LogType = "review:reject"
	LogPublishStart     LogType = "publish:start"
	LogPublishProgress  LogType = "publish:progress"
	LogPublishDone      LogType = "publish:done"
	LogPublishError     LogType = "publish:error"
)

// ImportLog — запись аудита импорта.
type ImportLog struct {
	ID         int64
	TemplateID *int64
	RunID      *string
	Type       LogType
	Payload    map[string]any
	At         time.Time
}

func NewImportLog(templateID *int64, runID *string, typ LogType, payload map[string]any, at time.Time) *ImportLog {
	if payload == nil {
		payload = map[string]any{}
	}
	return &ImportLog{
		TemplateID: templateID,
		RunID:      runID,
		Type:       typ,
		Payload:    payload,
		At:         at,
	}
}
