package region

import "fmt"

// Reason машинно-читаемая причина отказа геометрической операции
type Reason string

const (
	ReasonHorizontalUnsupported Reason = "horizontal_unsupported" // форма меняется только по вертикали
	ReasonUnsupported           Reason = "unsupported"            // операция не поддерживается формой
	ReasonDegenerate            Reason = "degenerate"             // результат вырожден (min > max)
	ReasonNotAxisAligned        Reason = "not_axis_aligned"       // поворот не кратен 90 градусам
)

// OperationError ошибка Expand/Contract/Shift/Transform. Область при этом не меняется.
type OperationError struct {
	Op     string
	Reason Reason
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("операция %s над областью невозможна: %s", e.Op, e.Reason)
}
