package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// ChunkFailureKind причина, по которой секция снимка не читается
type ChunkFailureKind int

const (
	ChunkMissing ChunkFailureKind = iota
	ChunkCorrupt
)

func (k ChunkFailureKind) String() string {
	if k == ChunkCorrupt {
		return "corrupt"
	}
	return "missing"
}

// SnapshotChunkError секция снимка отсутствует или повреждена
type SnapshotChunkError struct {
	Chunk vec.Vec3
	Kind  ChunkFailureKind
	Err   error
}

func (e *SnapshotChunkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("секция снимка %v (%s): %v", e.Chunk, e.Kind, e.Err)
	}
	return fmt.Sprintf("секция снимка %v (%s)", e.Chunk, e.Kind)
}

func (e *SnapshotChunkError) Unwrap() error { return e.Err }

// ChunkCoords координаты секции
func (e *SnapshotChunkError) ChunkCoords() vec.Vec3 { return e.Chunk }

// SnapshotSource неизменяемый источник блоков из каталога снимка.
// Реализует world.Extent; ошибки секций запоминаются для Failures.
type SnapshotSource struct {
	storage *WorldStorage
	meta    worldMeta

	mu       sync.Mutex
	chunks   map[vec.Vec3]*world.Chunk
	failures map[vec.Vec3]*SnapshotChunkError
}

// OpenSnapshot открывает снимок только для чтения
func OpenSnapshot(path string) (*SnapshotSource, error) {
	st, err := openStorage(path, true)
	if err != nil {
		return nil, err
	}
	s := &SnapshotSource{
		storage:  st,
		meta:     worldMeta{MinY: world.DefaultMinY, MaxY: world.DefaultMaxY},
		chunks:   make(map[vec.Vec3]*world.Chunk),
		failures: make(map[vec.Vec3]*SnapshotChunkError),
	}
	if _, err := st.get([]byte(metaKey), &s.meta); err != nil {
		st.Close()
		return nil, fmt.Errorf("ошибка чтения метаданных снимка: %w", err)
	}
	return s, nil
}

func (s *SnapshotSource) Close() error { return s.storage.Close() }

// Name имя мира, с которого снят снимок
func (s *SnapshotSource) Name() string { return s.meta.Name }

func (s *SnapshotSource) MinimumPoint() vec.Vec3 {
	return vec.New(-30_000_000, s.meta.MinY, -30_000_000)
}

func (s *SnapshotSource) MaximumPoint() vec.Vec3 {
	return vec.New(30_000_000, s.meta.MaxY, 30_000_000)
}

// BlockAt читает блок снимка. Для отсутствующей или повреждённой секции
// возвращается SnapshotChunkError.
func (s *SnapshotSource) BlockAt(p vec.Vec3) (block.Value, error) {
	if p.Y < s.meta.MinY || p.Y > s.meta.MaxY {
		return block.Air, nil
	}
	coords := p.ToChunkCoords()

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.failures[coords]; ok {
		return block.Air, f
	}
	c, ok := s.chunks[coords]
	if !ok {
		var err error
		c, err = s.storage.LoadChunk(coords)
		switch {
		case err != nil:
			return block.Air, s.failLocked(coords, ChunkCorrupt, err)
		case c == nil:
			return block.Air, s.failLocked(coords, ChunkMissing, nil)
		}
		s.chunks[coords] = c
	}
	return c.Get(p.LocalInChunk()), nil
}

func (s *SnapshotSource) failLocked(coords vec.Vec3, kind ChunkFailureKind, err error) error {
	var ce *corruptError
	if err != nil && !errors.As(err, &ce) {
		// Ошибка самой базы, а не данных секции
		return fmt.Errorf("ошибка чтения снимка: %w", err)
	}
	f := &SnapshotChunkError{Chunk: coords, Kind: kind, Err: err}
	s.failures[coords] = f
	logging.GetStorageLogger().Warn("Секция снимка %v недоступна: %s", coords, kind)
	return f
}

// Failures секции, которые не удалось прочитать, в порядке координат
func (s *SnapshotSource) Failures() []*SnapshotChunkError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SnapshotChunkError, 0, len(s.failures))
	for _, f := range s.failures {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *SnapshotChunkError) int { return a.Chunk.Compare(b.Chunk) })
	return out
}

// TakeSnapshot записывает секции, покрывающие область, в новый каталог снимка.
// Возвращает число записанных секций.
func TakeSnapshot(src world.World, r region.Region, path string) (int, error) {
	st, err := openStorage(path, false)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	lo, hi := src.MinimumPoint(), src.MaximumPoint()
	rlo := r.MinimumPoint().Max(lo).ToChunkCoords()
	rhi := r.MaximumPoint().Min(hi).ToChunkCoords()

	written := 0
	for cy := rlo.Y; cy <= rhi.Y; cy++ {
		for cz := rlo.Z; cz <= rhi.Z; cz++ {
			for cx := rlo.X; cx <= rhi.X; cx++ {
				c := world.NewChunk(vec.New(cx, cy, cz))
				origin := c.Origin()
				for i := range c.IDs {
					local := world.LocalFromIndex(i)
					p := origin.Add(local)
					if p.Y < lo.Y || p.Y > hi.Y {
						continue
					}
					v, err := src.BlockAt(p)
					if err != nil {
						return written, fmt.Errorf("ошибка чтения %v: %w", p, err)
					}
					c.Set(local, v)
				}
				if err := st.SaveChunk(c); err != nil {
					return written, err
				}
				written++
			}
		}
	}

	meta := worldMeta{Name: src.Name(), MinY: lo.Y, MaxY: hi.Y}
	if err := st.put([]byte(metaKey), meta); err != nil {
		return written, err
	}
	logging.GetStorageLogger().Info("📸 Снимок мира %s: %d секций в %s", src.Name(), written, path)
	return written, nil
}
