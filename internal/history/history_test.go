package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// grid простой мир для воспроизведения
type grid struct {
	cells  map[vec.Vec3]block.Value
	failAt int // номер записи, на которой вернуть ошибку (0 - никогда)
	writes int
}

func newGrid() *grid { return &grid{cells: map[vec.Vec3]block.Value{}} }

func (g *grid) SetBlock(p vec.Vec3, v block.Value) (bool, error) {
	g.writes++
	if g.failAt > 0 && g.writes == g.failAt {
		return false, errors.New("диск недоступен")
	}
	changed := !g.cells[p].Equals(v)
	g.cells[p] = v
	return changed, nil
}

func (g *grid) snapshot() map[vec.Vec3]block.Value {
	out := make(map[vec.Vec3]block.Value, len(g.cells))
	for k, v := range g.cells {
		out[k] = v
	}
	return out
}

// apply записывает значение и заносит изменение в транзакцию
func apply(g *grid, tx *Transaction, p vec.Vec3, v block.Value) {
	prev := g.cells[p]
	g.cells[p] = v
	tx.Add(Change{Pos: p, Previous: prev, Current: v})
}

func stone() block.Value { return block.Of(block.StoneBlockID) }
func dirt() block.Value  { return block.Of(block.DirtBlockID) }

func txWith(g *grid, label string, n int, v block.Value) *Transaction {
	tx := NewTransaction("alice", label)
	for i := 0; i < n; i++ {
		apply(g, tx, vec.New(i, 0, 0), v)
	}
	return tx
}

func TestUndoRedoRoundTrip(t *testing.T) {
	g := newGrid()
	g.cells[vec.New(0, 0, 0)] = dirt()
	before := g.snapshot()

	tx := NewTransaction("alice", "set")
	for i := 0; i < 10; i++ {
		apply(g, tx, vec.New(i%4, i/4, 0), block.NewValue(block.StoneBlockID, uint8(i)))
	}
	after := g.snapshot()

	j := NewJournal(0)
	require.True(t, j.Commit(tx))

	undone, err := j.Undo(g)
	require.NoError(t, err)
	assert.Same(t, tx, undone)
	for p, v := range before {
		assert.True(t, v.Equals(g.cells[p]), "ячейка %v после отмены", p)
	}
	for p, v := range g.cells {
		if _, ok := before[p]; !ok {
			assert.True(t, v.IsAir(), "ячейка %v должна вернуться к воздуху", p)
		}
	}

	_, err = j.Redo(g)
	require.NoError(t, err)
	for p, v := range after {
		assert.True(t, v.Equals(g.cells[p]), "ячейка %v после повтора", p)
	}
}

func TestUndoRestoresRepeatedWritesInOrder(t *testing.T) {
	g := newGrid()
	p := vec.New(1, 1, 1)
	tx := NewTransaction("alice", "twice")
	apply(g, tx, p, stone())
	apply(g, tx, p, dirt())

	require.NoError(t, tx.Undo(g))
	assert.True(t, g.cells[p].IsAir(), "обратный порядок возвращает исходное значение")
	require.NoError(t, tx.Redo(g))
	assert.Equal(t, block.DirtBlockID, g.cells[p].ID)
}

func TestRedoTruncatedByNewCommit(t *testing.T) {
	g := newGrid()
	j := NewJournal(0)
	j.Commit(txWith(g, "t1", 3, stone()))

	_, err := j.Undo(g)
	require.NoError(t, err)
	assert.True(t, j.CanRedo())

	j.Commit(txWith(g, "t2", 2, dirt()))
	_, err = j.Redo(g)
	assert.ErrorIs(t, err, ErrNothingToRedo)
	assert.Equal(t, 1, j.Len())
}

func TestJournalDepthLimit(t *testing.T) {
	g := newGrid()
	j := NewJournal(2)
	t1 := txWith(g, "t1", 1, stone())
	t2 := txWith(g, "t2", 1, dirt())
	t3 := txWith(g, "t3", 1, stone())
	j.Commit(t1)
	j.Commit(t2)
	j.Commit(t3)

	assert.Equal(t, []*Transaction{t2, t3}, j.Entries())
	assert.Equal(t, 2, j.Cursor())

	got, err := j.Undo(g)
	require.NoError(t, err)
	assert.Same(t, t3, got)
	got, err = j.Undo(g)
	require.NoError(t, err)
	assert.Same(t, t2, got)
	_, err = j.Undo(g)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestEmptyTransactionNotCommitted(t *testing.T) {
	j := NewJournal(0)
	assert.False(t, j.Commit(NewTransaction("alice", "noop")))
	assert.False(t, j.Commit(nil))
	assert.Equal(t, 0, j.Len())
	_, err := j.Undo(newGrid())
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestFailedUndoKeepsCursor(t *testing.T) {
	g := newGrid()
	j := NewJournal(0)
	j.Commit(txWith(g, "t1", 5, stone()))

	g.failAt = 3
	_, err := j.Undo(g)
	require.Error(t, err)
	assert.Equal(t, 1, j.Cursor(), "курсор не сдвигается при ошибке")

	g.failAt = 0
	_, err = j.Undo(g)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.True(t, g.cells[vec.New(i, 0, 0)].IsAir())
	}
}

func TestSetMaxDepthWithPendingRedo(t *testing.T) {
	g := newGrid()
	j := NewJournal(0)
	for i := 0; i < 4; i++ {
		j.Commit(txWith(g, "t", 1, stone()))
	}
	_, _ = j.Undo(g)
	_, _ = j.Undo(g)
	_, _ = j.Undo(g)
	require.Equal(t, 1, j.Cursor())

	j.SetMaxDepth(2)
	assert.LessOrEqual(t, j.Len(), 2)
	assert.LessOrEqual(t, j.Cursor(), j.Len())
	assert.True(t, j.CanUndo())
}

func TestStateRoundTrip(t *testing.T) {
	g := newGrid()
	j := NewJournal(5)
	j.Commit(txWith(g, "t1", 2, stone()))
	j.Commit(txWith(g, "t2", 2, dirt()))
	_, _ = j.Undo(g)

	restored := NewJournalFromState(j.State())
	assert.Equal(t, 1, restored.Cursor())
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, 5, restored.MaxDepth())
	tx, err := restored.Redo(g)
	require.NoError(t, err)
	assert.Equal(t, "t2", tx.Label)
}

func TestTransactionBounds(t *testing.T) {
	tx := NewTransaction("alice", "b")
	_, _, ok := tx.Bounds()
	assert.False(t, ok)
	tx.Add(Change{Pos: vec.New(3, -1, 2)})
	tx.Add(Change{Pos: vec.New(-2, 5, 0)})
	lo, hi, ok := tx.Bounds()
	require.True(t, ok)
	assert.Equal(t, vec.New(-2, -1, 0), lo)
	assert.Equal(t, vec.New(3, 5, 2), hi)
}

// biomeGrid сетка, которая хранит ещё и биомы колонок
type biomeGrid struct {
	*grid
	biomes map[vec.Vec2]world.BiomeType
}

func (g *biomeGrid) SetBiome(v vec.Vec2, b world.BiomeType) (bool, error) {
	changed := g.biomes[v] != b
	g.biomes[v] = b
	return changed, nil
}

func TestUndoRedoBiomes(t *testing.T) {
	g := &biomeGrid{grid: newGrid(), biomes: map[vec.Vec2]world.BiomeType{}}
	column := vec.Vec2{X: 2, Z: 3}

	tx := NewTransaction("alice", "setbiome")
	tx.AddBiome(BiomeChange{Column: column, Previous: world.BiomePlains, Current: world.BiomeDesert})
	tx.AddBiome(BiomeChange{Column: column, Previous: world.BiomeDesert, Current: world.BiomeSwamp})
	g.biomes[column] = world.BiomeSwamp
	assert.Equal(t, 2, tx.Len(), "изменения биомов учитываются в размере транзакции")
	assert.False(t, tx.IsEmpty())

	j := NewJournal(0)
	require.True(t, j.Commit(tx))

	_, err := j.Undo(g)
	require.NoError(t, err)
	assert.Equal(t, world.BiomePlains, g.biomes[column], "отмена идёт в обратном порядке")

	_, err = j.Redo(g)
	require.NoError(t, err)
	assert.Equal(t, world.BiomeSwamp, g.biomes[column])

	// приёмник без биомов не может воспроизвести такую транзакцию
	require.Error(t, tx.Undo(newGrid()))
}
