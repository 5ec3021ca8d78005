package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/eventbus"
	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/world/block"
)

// command подготовленная к выполнению операция правки
type command struct {
	label    string
	op       operation.Operation
	counters []function.Counted
	// volume оценка числа ячеек; -1 если неизвестна (выполняется через очередь)
	volume int64
	// finish вызывается после успешного завершения операции
	finish func(ctx context.Context) error
}

func (cmd *command) affected(p operation.Progress) int {
	if len(cmd.counters) == 0 {
		return p.Affected
	}
	n := 0
	for _, c := range cmd.counters {
		n += c.Affected()
	}
	return n
}

// CommandResult итог выполненной команды
type CommandResult struct {
	Label     string                `json:"label"`
	Affected  int                   `json:"affected"`
	Changes   int                   `json:"changes"`
	Committed bool                  `json:"committed"`
	Partial   bool                  `json:"partial"`
	Shortages map[block.BlockID]int `json:"shortages,omitempty"`
}

// QueuedResult ответ на команду, поставленную в очередь планировщика
type QueuedResult struct {
	JobID uuid.UUID `json:"job_id"`
	Label string    `json:"label"`
}

// execute выполняет команду сразу, если она мала, иначе ставит в очередь.
// Пока у оператора есть задания в очереди, любая команда встаёт за ними,
// чтобы транзакции попадали в журнал в порядке поступления.
// Транзакция фиксируется в журнале и при ошибке: применённая часть отменяема.
func (rs *RestServer) execute(c *gin.Context, sess *session.LocalSession, es *edit.EditSession, cmd *command) {
	inline := cmd.volume >= 0 && cmd.volume <= rs.inlineVolume
	if rs.scheduler == nil || (inline && !rs.scheduler.Busy(sess.Operator())) {
		rs.executeInline(c, sess, es, cmd)
		return
	}

	jobID := make(chan uuid.UUID, 1)
	id := rs.scheduler.Submit(sess.Operator(), cmd.label, cmd.op, func(p operation.Progress, err error) {
		ctx := context.Background()
		if err != nil {
			es.MarkPartial()
		} else if cmd.finish != nil {
			err = cmd.finish(ctx)
		}
		_, flushErr := sess.Remember(ctx, es)
		err = errors.Join(err, flushErr)
		rs.publishFinished(ctx, <-jobID, sess.Operator(), cmd, p, err)
	})
	jobID <- id
	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "операция поставлена в очередь",
		Data:    QueuedResult{JobID: id, Label: cmd.label},
	})
}

func (rs *RestServer) executeInline(c *gin.Context, sess *session.LocalSession, es *edit.EditSession, cmd *command) {
	ctx := c.Request.Context()
	n, err := es.Run(ctx, cmd.op, cmd.counters...)
	if err == nil && cmd.finish != nil {
		err = cmd.finish(ctx)
	}
	committed, flushErr := sess.Remember(ctx, es)
	err = errors.Join(err, flushErr)

	tx := es.Transaction()
	if err != nil {
		renderError(c, err, map[string]any{
			"affected":  n,
			"changes":   tx.Len(),
			"committed": committed,
		})
		return
	}
	respond(c, CommandResult{
		Label:     cmd.label,
		Affected:  n,
		Changes:   tx.Len(),
		Committed: committed,
		Partial:   tx.Partial,
		Shortages: es.BlockBagShortages(),
	})
}

// publishFinished сообщает о завершении фоновой операции
func (rs *RestServer) publishFinished(ctx context.Context, id uuid.UUID, operator string, cmd *command, p operation.Progress, err error) {
	payload := eventbus.OperationFinished{
		JobID:    id.String(),
		Operator: operator,
		Label:    cmd.label,
		Status:   cmd.op.Status().String(),
		Affected: cmd.affected(p),
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if rs.bus == nil {
		return
	}
	ev, encErr := eventbus.NewEnvelope(eventbus.TypeOperationFinished, rs.nodeID, payload)
	if encErr != nil {
		logging.GetAPILogger().Warn("Событие завершения операции %s не сериализовано: %v", cmd.label, encErr)
		return
	}
	if pubErr := rs.bus.Publish(ctx, ev); pubErr != nil {
		logging.GetAPILogger().Warn("Событие завершения операции %s не опубликовано: %v", cmd.label, pubErr)
	}
}
