package eventbus

import (
	"time"

	"github.com/annel0/blockedit/internal/vec"
)

// Типы событий редактора
const (
	TypeSelectionChanged     = "selection.changed"
	TypeTransactionCommitted = "transaction.committed"
	TypeHistoryUndo          = "history.undo"
	TypeHistoryRedo          = "history.redo"
	TypeHistoryCleared       = "history.cleared"
	TypeClipboardCopied      = "clipboard.copied"
	TypeClipboardCleared     = "clipboard.cleared"
	TypeOperationFinished    = "operation.finished"
	TypeSessionExpired       = "session.expired"
)

func priorityOf(eventType string) int {
	switch eventType {
	case TypeTransactionCommitted, TypeHistoryUndo, TypeHistoryRedo:
		return 7
	case TypeClipboardCleared, TypeOperationFinished:
		return 5
	default:
		return 2
	}
}

// SelectionChanged выделение оператора изменилось
type SelectionChanged struct {
	Operator string    `json:"operator"`
	World    string    `json:"world"`
	Selector string    `json:"selector"`
	Event    string    `json:"event"`
	Defined  bool      `json:"defined"`
	Min      *vec.Vec3 `json:"min,omitempty"`
	Max      *vec.Vec3 `json:"max,omitempty"`
}

// TransactionCommitted транзакция записана в журнал оператора
type TransactionCommitted struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	World     string    `json:"world"`
	Label     string    `json:"label"`
	Changes   int       `json:"changes"`
	Partial   bool      `json:"partial"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryReplayed транзакция отменена или повторена
type HistoryReplayed struct {
	Operator      string `json:"operator"`
	World         string `json:"world"`
	TransactionID string `json:"transaction_id"`
	Changes       int    `json:"changes"`
}

// ClipboardChanged буфер обмена оператора заполнен или очищен
type ClipboardChanged struct {
	Operator   string   `json:"operator"`
	Dimensions vec.Vec3 `json:"dimensions"`
}

// OperationFinished фоновая операция планировщика завершилась
type OperationFinished struct {
	JobID    string `json:"job_id"`
	Operator string `json:"operator"`
	Label    string `json:"label"`
	Status   string `json:"status"`
	Affected int    `json:"affected"`
	Error    string `json:"error,omitempty"`
}
