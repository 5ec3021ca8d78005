package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/middleware"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/session"
)

// HistoryRequest число транзакций для undo/redo
type HistoryRequest struct {
	Times int `json:"times"`
}

// ReplayResult итог undo/redo
type ReplayResult struct {
	Done  int  `json:"done"`
	Undo  int  `json:"undo_available"`
	Redo  int  `json:"redo_available"`
	Depth int  `json:"depth"`
	Full  bool `json:"all_done"`
}

func (rs *RestServer) handleUndo(c *gin.Context) { rs.replay(c, true) }
func (rs *RestServer) handleRedo(c *gin.Context) { rs.replay(c, false) }

func (rs *RestServer) replay(c *gin.Context, undo bool) {
	var req HistoryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			renderError(c, badRequest("неверный формат запроса"), nil)
			return
		}
	}
	times := max(req.Times, 1)
	sess, found := rs.session(c)
	if !found || !rs.idle(c, sess) {
		return
	}

	ctx := c.Request.Context()
	var (
		done int
		err  error
	)
	if undo {
		done, err = sess.Undo(ctx, times, rs.world)
	} else {
		done, err = sess.Redo(ctx, times, rs.world)
	}
	if err != nil {
		renderError(c, err, map[string]any{"done": done})
		return
	}
	j := sess.Journal()
	respond(c, ReplayResult{
		Done:  done,
		Undo:  j.Cursor(),
		Redo:  j.Len() - j.Cursor(),
		Depth: j.MaxDepth(),
		Full:  done == times,
	})
}

func (rs *RestServer) handleHistoryClear(c *gin.Context) {
	sess, found := rs.session(c)
	if !found || !rs.idle(c, sess) {
		return
	}
	sess.ClearHistory(c.Request.Context())
	respond(c, nil)
}

// handleHistoryList последние транзакции оператора из архива
func (rs *RestServer) handleHistoryList(c *gin.Context) {
	if rs.archive == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Success: false, Message: "архив транзакций отключён"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		renderError(c, badRequest("limit должен быть положительным числом"), nil)
		return
	}
	operator := c.Query("operator")
	if operator == "" {
		operator = c.GetString(middleware.OperatorKey)
	}
	records, err := rs.archive.List(c.Request.Context(), operator, min(limit, 500))
	if err != nil {
		renderError(c, err, nil)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	respond(c, records)
}

// ---------------- Фоновые операции ----------------

// idle отвечает 409, если у оператора есть незавершённые задания:
// журнал нельзя переигрывать, пока в него не попали их транзакции.
func (rs *RestServer) idle(c *gin.Context, sess *session.LocalSession) bool {
	if rs.scheduler == nil || !rs.scheduler.Busy(sess.Operator()) {
		return true
	}
	renderError(c, operation.ErrOperatorBusy, map[string]any{"operator": sess.Operator()})
	return false
}

func (rs *RestServer) jobOf(c *gin.Context) (operation.JobInfo, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		renderError(c, badRequest("неверный идентификатор операции"), nil)
		return operation.JobInfo{}, false
	}
	info, found := rs.scheduler.Job(id)
	if !found || info.Operator != c.GetString(middleware.OperatorKey) {
		c.AbortWithStatusJSON(http.StatusNotFound, GenericResponse{Success: false, Message: "операция не найдена"})
		return operation.JobInfo{}, false
	}
	return info, true
}

func (rs *RestServer) handleGetOperation(c *gin.Context) {
	info, found := rs.jobOf(c)
	if !found {
		return
	}
	respond(c, info)
}

func (rs *RestServer) handleCancelOperation(c *gin.Context) {
	info, found := rs.jobOf(c)
	if !found {
		return
	}
	respond(c, gin.H{"job_id": info.ID, "cancelled": rs.scheduler.CancelJob(info.ID)})
}

// handleCancelAll отменяет все операции оператора
func (rs *RestServer) handleCancelAll(c *gin.Context) {
	n := rs.scheduler.Cancel(c.GetString(middleware.OperatorKey))
	respond(c, gin.H{"cancelled": n})
}
