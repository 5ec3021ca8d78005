package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/auth"
	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/expression"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/selector"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/storage"
)

// ErrorBody описание ошибки в ответе API
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// errBadRequest ошибка разбора аргументов команды
type errBadRequest struct{ msg string }

func (e *errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return &errBadRequest{msg: msg} }

// describeError переводит ошибку движка в HTTP статус и тело ответа
func describeError(err error) (int, ErrorBody) {
	body := ErrorBody{Message: err.Error()}

	var (
		badReq    *errBadRequest
		syntax    *expression.SyntaxError
		eval      *expression.EvaluationError
		shape     *edit.ShapeEvaluationError
		limit     *edit.MaxChangedBlocksError
		access    *edit.WorldAccessError
		restore   *edit.RestoreError
		regionOp  *region.OperationError
		incomplet *selector.IncompleteRegionError
		tooHigh   *session.ErrLimitTooHigh
	)
	switch {
	case errors.As(err, &badReq):
		body.Code = "bad_request"
		return http.StatusBadRequest, body
	case errors.As(err, &syntax):
		body.Code = "syntax_error"
		body.Details = map[string]any{"pos": syntax.Pos, "line": syntax.Line, "col": syntax.Col}
		return http.StatusBadRequest, body
	case errors.As(err, &shape):
		body.Code = "evaluation_error"
		body.Details = map[string]any{"at": shape.Pos}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &eval):
		body.Code = "evaluation_error"
		body.Details = map[string]any{"pos": eval.Pos}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &limit):
		body.Code = "max_changed_blocks"
		body.Details = map[string]any{"limit": limit.Limit}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &restore):
		chunks := make([]any, 0, len(restore.Failures))
		for _, f := range restore.Failures {
			var ce *storage.SnapshotChunkError
			if errors.As(f, &ce) {
				chunks = append(chunks, map[string]any{"chunk": ce.Chunk, "kind": ce.Kind.String()})
			}
		}
		body.Code = "restore_incomplete"
		body.Details = map[string]any{"chunks": chunks}
		return http.StatusMultiStatus, body
	case errors.As(err, &access):
		body.Code = "world_access"
		body.Details = map[string]any{"pos": access.Pos, "op": access.Op}
		return http.StatusBadGateway, body
	case errors.As(err, &regionOp):
		body.Code = "region_operation"
		body.Details = map[string]any{"op": regionOp.Op, "reason": regionOp.Reason}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &incomplet):
		body.Code = "incomplete_region"
		body.Details = map[string]any{"selector": incomplet.Kind.String()}
		return http.StatusConflict, body
	case errors.As(err, &tooHigh):
		body.Code = "limit_too_high"
		body.Details = map[string]any{"requested": tooHigh.Requested, "max": tooHigh.Max}
		return http.StatusForbidden, body
	case errors.Is(err, history.ErrNothingToUndo):
		body.Code = "nothing_to_undo"
		return http.StatusConflict, body
	case errors.Is(err, history.ErrNothingToRedo):
		body.Code = "nothing_to_redo"
		return http.StatusConflict, body
	case errors.Is(err, clipboard.ErrEmpty):
		body.Code = "clipboard_empty"
		return http.StatusNotFound, body
	case errors.Is(err, operation.ErrOperatorBusy):
		body.Code = "operation_pending"
		return http.StatusConflict, body
	case errors.Is(err, operation.ErrCancelled):
		body.Code = "cancelled"
		return http.StatusConflict, body
	case errors.Is(err, auth.ErrBadCredentials), errors.Is(err, auth.ErrInvalidToken):
		body.Code = "unauthorized"
		return http.StatusUnauthorized, body
	case errors.Is(err, edit.ErrUnsupported):
		body.Code = "unsupported"
		return http.StatusNotImplemented, body
	}

	body.Code = "internal"
	return http.StatusInternalServerError, body
}

// renderError пишет ошибку в ответ. extra дополняет тело (например, число
// изменений, применённых до ошибки).
func renderError(c *gin.Context, err error, extra map[string]any) {
	status, body := describeError(err)
	if status >= http.StatusInternalServerError {
		logging.GetAPILogger().Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	for k, v := range extra {
		if body.Details == nil {
			body.Details = make(map[string]any, len(extra))
		}
		body.Details[k] = v
	}
	c.AbortWithStatusJSON(status, GenericResponse{
		Success: false,
		Message: body.Message,
		Error:   &body,
	})
}
