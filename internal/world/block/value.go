package block

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"
)

// Attributes расширенные атрибуты блока (содержимое сундука, текст таблички)
type Attributes map[string]interface{}

// Value значение ячейки мира: тип, подтип/ориентация и необязательные атрибуты.
// Сравнение структурное.
type Value struct {
	ID    BlockID    `json:"id"`
	Data  uint8      `json:"data,omitempty"`
	Attrs Attributes `json:"attrs,omitempty"`
}

// Air пустая ячейка
var Air = Value{ID: AirBlockID}

// NewValue создаёт значение без атрибутов
func NewValue(id BlockID, data uint8) Value {
	return Value{ID: id, Data: data}
}

// Of создаёт значение указанного типа с нулевыми данными
func Of(id BlockID) Value {
	return Value{ID: id}
}

// IsAir проверяет, является ли значение пустым
func (v Value) IsAir() bool {
	return v.ID == AirBlockID
}

// Equals структурно сравнивает два значения
func (v Value) Equals(other Value) bool {
	if v.ID != other.ID || v.Data != other.Data {
		return false
	}
	if len(v.Attrs) == 0 && len(other.Attrs) == 0 {
		return true
	}
	return reflect.DeepEqual(v.Attrs, other.Attrs)
}

// WithData возвращает копию значения с другим подтипом
func (v Value) WithData(data uint8) Value {
	c := v.Clone()
	c.Data = data
	return c
}

// WithID возвращает копию значения с другим типом
func (v Value) WithID(id BlockID) Value {
	c := v.Clone()
	c.ID = id
	return c
}

// Clone создаёт глубокую копию атрибутов
func (v Value) Clone() Value {
	c := Value{ID: v.ID, Data: v.Data}
	if len(v.Attrs) > 0 {
		c.Attrs = maps.Clone(v.Attrs)
	}
	return c
}

func (v Value) String() string {
	if v.Data == 0 {
		return v.ID.Name()
	}
	return fmt.Sprintf("%s:%d", v.ID.Name(), v.Data)
}

// ParseValue разбирает строку вида "stone", "stone:2" или "4:2"
func ParseValue(s string) (Value, error) {
	name, dataStr, hasData := strings.Cut(strings.TrimSpace(s), ":")
	if name == "" {
		return Value{}, fmt.Errorf("пустое имя блока")
	}

	var id BlockID
	if t, ok := Lookup(name); ok {
		id = t.ID
	} else if n, err := strconv.ParseUint(name, 10, 16); err == nil && IsValidBlockID(BlockID(n)) {
		id = BlockID(n)
	} else {
		return Value{}, fmt.Errorf("неизвестный тип блока: %q", name)
	}

	var data uint8
	if hasData {
		n, err := strconv.ParseUint(dataStr, 10, 8)
		if err != nil {
			return Value{}, fmt.Errorf("некорректные данные блока %q: %w", dataStr, err)
		}
		data = uint8(n)
	}
	return Value{ID: id, Data: data}, nil
}

// ParseValues разбирает список значений через запятую
func ParseValues(s string) ([]Value, error) {
	parts := strings.Split(s, ",")
	out := make([]Value, 0, len(parts))
	for _, p := range parts {
		v, err := ParseValue(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
