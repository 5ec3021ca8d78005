package clipboard

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// encoded сериализованная форма буфера: палитра и индексы ячеек.
// Индекс -1 означает ячейку ограничивающего параллелепипеда вне области.
type encoded struct {
	Min       vec.Vec3               `json:"min"`
	Max       vec.Vec3               `json:"max"`
	Origin    vec.Vec3               `json:"origin"`
	Transform region.AffineTransform `json:"transform"`
	Palette   []block.Value          `json:"palette"`
	Cells     []int32                `json:"cells"`
	Entities  []world.Entity         `json:"entities,omitempty"`
}

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

func paletteKey(v block.Value) string {
	if len(v.Attrs) == 0 {
		return fmt.Sprintf("%d:%d", v.ID, v.Data)
	}
	attrs, _ := json.Marshal(v.Attrs)
	return fmt.Sprintf("%d:%d:%s", v.ID, v.Data, attrs)
}

// Marshal сериализует буфер в JSON, сжатый zstd
func Marshal(c *Clipboard) ([]byte, error) {
	e := encoded{
		Min:       c.lo,
		Max:       c.hi,
		Origin:    c.Origin,
		Transform: c.Transform,
		Cells:     make([]int32, len(c.blocks)),
		Entities:  c.Entities,
	}
	index := make(map[string]int32)
	for y := c.lo.Y; y <= c.hi.Y && c.blocks != nil; y++ {
		for z := c.lo.Z; z <= c.hi.Z; z++ {
			for x := c.lo.X; x <= c.hi.X; x++ {
				p := vec.New(x, y, z)
				i, _ := c.index(p)
				if !c.Contains(p) {
					e.Cells[i] = -1
					continue
				}
				v := c.blocks[i]
				key := paletteKey(v)
				id, ok := index[key]
				if !ok {
					id = int32(len(e.Palette))
					index[key] = id
					e.Palette = append(e.Palette, v)
				}
				e.Cells[i] = id
			}
		}
	}

	raw, err := json.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации буфера обмена: %w", err)
	}
	enc, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd кодера: %w", err)
	}
	return enc.EncodeAll(raw, nil), nil
}

// Unmarshal восстанавливает буфер. Область восстанавливается как
// параллелепипед с картой принадлежности ячеек.
func Unmarshal(data []byte) (*Clipboard, error) {
	dec, err := decoder()
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd декодера: %w", err)
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки буфера обмена: %w", err)
	}
	var e encoded
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("ошибка разбора буфера обмена: %w", err)
	}

	c := New(region.NewCuboid(e.Min, e.Max))
	if len(e.Cells) != len(c.blocks) {
		return nil, fmt.Errorf("размер буфера обмена не совпадает: %d ячеек вместо %d", len(e.Cells), len(c.blocks))
	}
	c.Origin = e.Origin
	c.Transform = e.Transform
	c.Entities = e.Entities

	partial := false
	present := make([]bool, len(e.Cells))
	for i, id := range e.Cells {
		switch {
		case id < 0:
			partial = true
		case int(id) < len(e.Palette):
			c.blocks[i] = e.Palette[id].Clone()
			present[i] = true
		default:
			return nil, fmt.Errorf("индекс палитры %d вне диапазона", id)
		}
	}
	if partial {
		c.present = present
	}
	return c, nil
}
