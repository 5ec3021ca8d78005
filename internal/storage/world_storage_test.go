package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

func setupTestStorage(t *testing.T) (*WorldStorage, string) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "world-storage-test")
	require.NoError(t, err, "не удалось создать временную директорию")
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	storage, err := NewWorldStorage(tempDir)
	require.NoError(t, err, "не удалось создать хранилище")
	return storage, tempDir
}

func TestSaveAndLoadChunk(t *testing.T) {
	storage, _ := setupTestStorage(t)
	defer storage.Close()

	coords := vec.New(10, 2, -3)
	chunk := world.NewChunk(coords)
	chunk.Set(vec.New(5, 5, 5), block.Of(block.WaterBlockID))
	chunk.Set(vec.New(0, 15, 1), block.Value{ID: block.StoneBlockID, Attrs: block.Attributes{"facing": "north"}})
	require.NoError(t, storage.SaveChunk(chunk))

	loaded, err := storage.LoadChunk(coords)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, block.WaterBlockID, loaded.Get(vec.New(5, 5, 5)).ID)
	assert.Equal(t, "north", loaded.Get(vec.New(0, 15, 1)).Attrs["facing"], "атрибуты сохраняются")
	assert.Zero(t, loaded.ChangeCounter)

	missing, err := storage.LoadChunk(vec.New(99, 0, 99))
	require.NoError(t, err)
	assert.Nil(t, missing, "отсутствующая секция - nil без ошибки")
}

func TestJournalPersistence(t *testing.T) {
	storage, _ := setupTestStorage(t)
	defer storage.Close()

	_, ok, err := storage.LoadJournal("alice")
	require.NoError(t, err)
	assert.False(t, ok)

	tx := history.NewTransaction("alice", "set")
	tx.Add(history.Change{Pos: vec.New(1, 2, 3), Previous: block.Air, Current: block.Of(block.StoneBlockID)})
	j := history.NewJournal(5)
	require.True(t, j.Commit(tx))
	require.NoError(t, storage.SaveJournal("alice", j.State()))

	s, ok, err := storage.LoadJournal("alice")
	require.NoError(t, err)
	require.True(t, ok)
	restored := history.NewJournalFromState(s)
	require.Equal(t, 1, restored.Len())
	assert.Equal(t, tx.ID, restored.Entries()[0].ID)
	assert.Equal(t, block.StoneBlockID, restored.Entries()[0].Changes[0].Current.ID)
}

func TestBadgerWorldReopen(t *testing.T) {
	storage, tempDir := setupTestStorage(t)

	w, err := NewBadgerWorld("main", storage, world.WithHeight(0, 127))
	require.NoError(t, err)
	_, err = w.WriteBlock(vec.New(-20, 64, 33), block.Of(block.GlassBlockID), world.PhysicsSkip)
	require.NoError(t, err)
	id := w.AddEntity(world.Entity{TypeName: "cow", Kind: world.EntityKindPassive, Position: vec.NewFloat(1, 64, 1)})

	saved, err := w.Save()
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	require.NoError(t, storage.Close())

	storage, err = NewWorldStorage(tempDir)
	require.NoError(t, err)
	defer storage.Close()
	reopened, err := NewBadgerWorld("main", storage)
	require.NoError(t, err)

	v, err := reopened.BlockAt(vec.New(-20, 64, 33))
	require.NoError(t, err)
	assert.Equal(t, block.GlassBlockID, v.ID, "блок пережил перезапуск")
	assert.Equal(t, 127, reopened.MaximumPoint().Y, "границы мира восстановлены")

	entities, err := reopened.Entities(nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, id, entities[0].ID)
	assert.Greater(t, reopened.AddEntity(world.Entity{TypeName: "pig"}), id, "новые ID не пересекаются со старыми")
}

func TestBadgerWorldBiomesSurviveReopen(t *testing.T) {
	storage, tempDir := setupTestStorage(t)

	w, err := NewBadgerWorld("main", storage)
	require.NoError(t, err)
	column := vec.Vec2{X: -5, Z: 12}
	changed, err := w.SetBiome(column, world.BiomeJungle)
	require.NoError(t, err)
	require.True(t, changed)
	_, err = w.Save()
	require.NoError(t, err)
	require.NoError(t, storage.Close())

	storage, err = NewWorldStorage(tempDir)
	require.NoError(t, err)
	defer storage.Close()
	reopened, err := NewBadgerWorld("main", storage)
	require.NoError(t, err)

	b, err := reopened.BiomeAt(column)
	require.NoError(t, err)
	assert.Equal(t, world.BiomeJungle, b, "биом пережил перезапуск")
	b, err = reopened.BiomeAt(vec.Vec2{X: 0, Z: 0})
	require.NoError(t, err)
	assert.Equal(t, world.BiomePlains, b, "без генератора остальные колонки - равнины")
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	src := world.NewMemoryWorld("main")
	line := region.NewCuboid(vec.New(0, 10, 0), vec.New(31, 10, 0))
	for p := range line.Iterate() {
		_, err := src.WriteBlock(p, block.Of(block.StoneBlockID), world.PhysicsSkip)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "snap")
	n, err := TakeSnapshot(src, region.NewCuboid(vec.New(0, 0, 0), vec.New(15, 15, 15)), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "снимок покрывает одну секцию")

	snap, err := OpenSnapshot(path)
	require.NoError(t, err)
	defer snap.Close()
	assert.Equal(t, "main", snap.Name())

	target := world.NewMemoryWorld("main")
	es := edit.New(target, "alice")
	restored, err := es.Restore(ctx, line, snap)
	require.NoError(t, es.Flush())

	var restoreErr *edit.RestoreError
	require.ErrorAs(t, err, &restoreErr, "вторая секция отсутствует в снимке")
	require.Len(t, restoreErr.Failures, 1)
	var chunkErr *SnapshotChunkError
	require.True(t, errors.As(restoreErr.Failures[0], &chunkErr))
	assert.Equal(t, vec.New(1, 0, 0), chunkErr.ChunkCoords())
	assert.Equal(t, ChunkMissing, chunkErr.Kind)

	assert.Equal(t, 16, restored, "доступная часть восстановлена")
	v, err := target.BlockAt(vec.New(15, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, block.StoneBlockID, v.ID)
	v, err = target.BlockAt(vec.New(16, 10, 0))
	require.NoError(t, err)
	assert.True(t, v.IsAir())

	require.Len(t, snap.Failures(), 1)
}
