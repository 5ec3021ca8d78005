package expression

import (
	"fmt"
	"strings"
)

// SyntaxError ошибка компиляции формулы с позицией в исходном тексте
type SyntaxError struct {
	Pos  int // Смещение в байтах
	Line int // Строка, с 1
	Col  int // Столбец, с 1
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("синтаксическая ошибка (строка %d, столбец %d): %s", e.Line, e.Col, e.Msg)
}

// Snippet возвращает строку исходника с кареткой под позицией ошибки
func (e *SyntaxError) Snippet(src string) string {
	lines := strings.Split(src, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}
	line := lines[e.Line-1]
	col := max(e.Col, 1)
	return line + "\n" + strings.Repeat(" ", col-1) + "^"
}

// EvaluationError ошибка выполнения формулы
type EvaluationError struct {
	Pos int
	Msg string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("ошибка вычисления в позиции %d: %s", e.Pos, e.Msg)
}

// position переводит смещение в строку и столбец
func position(src string, pos int) (int, int) {
	pos = min(max(pos, 0), len(src))
	line := 1 + strings.Count(src[:pos], "\n")
	lastNL := strings.LastIndex(src[:pos], "\n")
	return line, pos - lastNL
}

func syntaxErr(src string, pos int, format string, args ...any) *SyntaxError {
	line, col := position(src, pos)
	return &SyntaxError{Pos: pos, Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}
