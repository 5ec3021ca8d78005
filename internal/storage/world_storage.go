package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/blockedit/internal/history"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// ErrNotReady хранилище закрыто
var ErrNotReady = errors.New("хранилище не готово")

const (
	entitiesKey   = "entities"
	biomesKey     = "biomes"
	metaKey       = "meta"
	journalPrefix = "journal:"
)

// WorldStorage хранилище секций, сущностей и журналов операторов в BadgerDB.
// Значения сжимаются zstd.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// chunkRecord формат секции на диске
type chunkRecord struct {
	Coords vec.Vec3                 `json:"coords"`
	IDs    []block.BlockID          `json:"ids"`
	Data   []uint8                  `json:"data"`
	Attrs  map[int]block.Attributes `json:"attrs,omitempty"`
}

// worldMeta вертикальные границы сохранённого мира
type worldMeta struct {
	Name string `json:"name"`
	MinY int    `json:"min_y"`
	MaxY int    `json:"max_y"`
}

func chunkKey(c vec.Vec3) []byte {
	return fmt.Appendf(nil, "chunk:%d:%d:%d", c.X, c.Y, c.Z)
}

// NewWorldStorage открывает хранилище в каталоге dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	return openStorage(filepath.Join(dataPath, "world"), false)
}

func openStorage(dbPath string, readOnly bool) (*WorldStorage, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	opts.ReadOnly = readOnly

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd кодера: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания zstd декодера: %w", err)
	}

	logging.GetStorageLogger().Info("💾 BadgerDB открыта: %s", dbPath)
	return &WorldStorage{db: db, dbPath: dbPath, isReady: true, enc: enc, dec: dec}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.dec.Close()
	return ws.db.Close()
}

func (ws *WorldStorage) put(key []byte, v any) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()
	if !ws.isReady {
		return ErrNotReady
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", key, err)
	}
	packed := ws.enc.EncodeAll(data, nil)
	if err := ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, packed)
	}); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// get читает значение. ok = false, если ключа нет.
func (ws *WorldStorage) get(key []byte, v any) (bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()
	if !ws.isReady {
		return false, ErrNotReady
	}

	var packed []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	data, err := ws.dec.DecodeAll(packed, nil)
	if err != nil {
		return true, &corruptError{key: string(key), err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &corruptError{key: string(key), err: err}
	}
	return true, nil
}

// corruptError значение есть, но не читается
type corruptError struct {
	key string
	err error
}

func (e *corruptError) Error() string {
	return fmt.Sprintf("повреждённое значение %s: %v", e.key, e.err)
}

func (e *corruptError) Unwrap() error { return e.err }

// SaveChunk сохраняет секцию целиком
func (ws *WorldStorage) SaveChunk(c *world.Chunk) error {
	rec := chunkRecord{
		Coords: c.Coords,
		IDs:    c.IDs[:],
		Data:   c.Data[:],
		Attrs:  c.Attrs,
	}
	return ws.put(chunkKey(c.Coords), rec)
}

// LoadChunk загружает секцию. nil, nil если секции нет.
func (ws *WorldStorage) LoadChunk(coords vec.Vec3) (*world.Chunk, error) {
	var rec chunkRecord
	ok, err := ws.get(chunkKey(coords), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return rec.toChunk(coords)
}

func (rec *chunkRecord) toChunk(coords vec.Vec3) (*world.Chunk, error) {
	c := world.NewChunk(coords)
	if len(rec.IDs) != len(c.IDs) || len(rec.Data) != len(c.Data) {
		return nil, &corruptError{
			key: string(chunkKey(coords)),
			err: fmt.Errorf("размер секции %d вместо %d", len(rec.IDs), len(c.IDs)),
		}
	}
	copy(c.IDs[:], rec.IDs)
	copy(c.Data[:], rec.Data)
	for i, attrs := range rec.Attrs {
		c.Attrs[i] = attrs
	}
	return c, nil
}

// SaveEntities сохраняет сущности мира одним значением
func (ws *WorldStorage) SaveEntities(entities []world.Entity) error {
	return ws.put([]byte(entitiesKey), entities)
}

// LoadEntities загружает сохранённые сущности
func (ws *WorldStorage) LoadEntities() ([]world.Entity, error) {
	var entities []world.Entity
	if _, err := ws.get([]byte(entitiesKey), &entities); err != nil {
		return nil, fmt.Errorf("ошибка загрузки сущностей: %w", err)
	}
	return entities, nil
}

// biomeRecord переопределённый биом колонки на диске
type biomeRecord struct {
	Column vec.Vec2        `json:"c"`
	Biome  world.BiomeType `json:"b"`
}

// SaveBiomes сохраняет все переопределённые биомы одним значением
func (ws *WorldStorage) SaveBiomes(biomes map[vec.Vec2]world.BiomeType) error {
	records := make([]biomeRecord, 0, len(biomes))
	for c, b := range biomes {
		records = append(records, biomeRecord{Column: c, Biome: b})
	}
	return ws.put([]byte(biomesKey), records)
}

// LoadBiomes загружает переопределённые биомы
func (ws *WorldStorage) LoadBiomes() (map[vec.Vec2]world.BiomeType, error) {
	var records []biomeRecord
	if _, err := ws.get([]byte(biomesKey), &records); err != nil {
		return nil, fmt.Errorf("ошибка загрузки биомов: %w", err)
	}
	biomes := make(map[vec.Vec2]world.BiomeType, len(records))
	for _, r := range records {
		biomes[r.Column] = r.Biome
	}
	return biomes, nil
}

// SaveJournal сохраняет журнал отмены оператора
func (ws *WorldStorage) SaveJournal(operator string, s history.State) error {
	return ws.put([]byte(journalPrefix+operator), s)
}

// LoadJournal загружает журнал оператора
func (ws *WorldStorage) LoadJournal(operator string) (history.State, bool, error) {
	var s history.State
	ok, err := ws.get([]byte(journalPrefix+operator), &s)
	if err != nil {
		return history.State{}, false, fmt.Errorf("ошибка загрузки журнала %s: %w", operator, err)
	}
	return s, ok, nil
}

// BadgerWorld мир в памяти, чьи секции и сущности сохраняются в BadgerDB
type BadgerWorld struct {
	*world.MemoryWorld
	storage *WorldStorage
}

// NewBadgerWorld открывает мир поверх хранилища. Ранее сохранённые
// сущности восстанавливаются с их ID.
func NewBadgerWorld(name string, storage *WorldStorage, opts ...world.WorldOption) (*BadgerWorld, error) {
	var meta worldMeta
	ok, err := storage.get([]byte(metaKey), &meta)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения метаданных мира: %w", err)
	}
	if ok {
		opts = append(opts, world.WithHeight(meta.MinY, meta.MaxY))
	}
	opts = append(opts, world.WithChunkStore(storage))
	w := world.NewMemoryWorld(name, opts...)

	entities, err := storage.LoadEntities()
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		w.PutEntity(e)
	}

	logging.GetStorageLogger().Info("🌍 Мир %s открыт (сущностей: %d)", name, len(entities))
	return &BadgerWorld{MemoryWorld: w, storage: storage}, nil
}

// Save сбрасывает изменённые секции и сущности на диск
func (bw *BadgerWorld) Save() (int, error) {
	saved, err := bw.MemoryWorld.Flush()
	if err != nil {
		return saved, err
	}
	entities, err := bw.Entities(nil)
	if err != nil {
		return saved, err
	}
	if err := bw.storage.SaveEntities(entities); err != nil {
		return saved, err
	}
	meta := worldMeta{Name: bw.Name(), MinY: bw.MinimumPoint().Y, MaxY: bw.MaximumPoint().Y}
	if err := bw.storage.put([]byte(metaKey), meta); err != nil {
		return saved, err
	}
	logging.GetStorageLogger().Debug("Мир %s сохранён: %d секций", bw.Name(), saved)
	return saved, nil
}
