package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockedit/internal/auth"
	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/config"
	"github.com/annel0/blockedit/internal/metrics"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

type testEnv struct {
	handler   http.Handler
	world     *world.MemoryWorld
	scheduler *operation.Scheduler
}

func newTestEnv(t *testing.T, inlineVolume int) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	w := world.NewMemoryWorld("test")
	sessions := session.NewManager(session.Services{
		NodeID:     "test-node",
		Metrics:    m,
		Clipboards: clipboard.NewMemoryStore(),
		Limits:     session.DefaultLimits(),
	})
	sched := operation.NewScheduler(10, m)
	issuer, err := auth.NewTokenIssuer("test-secret-for-api-tests", time.Hour)
	require.NoError(t, err)
	operators, err := auth.NewOperatorRegistry(map[string]string{"alice": "alice-key", "bob": "bob-key"})
	require.NoError(t, err)

	rs := NewRestServer(Config{
		World:       w,
		Sessions:    sessions,
		Scheduler:   sched,
		Issuer:      issuer,
		Operators:   operators,
		Registry:    reg,
		Edit:        config.Default().Edit,
		Scheduling:  config.SchedulerConfig{InlineVolume: inlineVolume},
		SnapshotDir: t.TempDir(),
		Seed:        1,
		NodeID:      "test-node",
	})
	return &testEnv{handler: rs.Handler(), world: w, scheduler: sched}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, operator, key string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/token", "", TokenRequest{Operator: operator, Key: key})
	require.Equal(t, http.StatusOK, rec.Code, "Токен должен выдаваться: %s", rec.Body.String())
	var tok TokenResponse
	decodeData(t, rec, &tok)
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func (e *testEnv) selectCuboid(t *testing.T, token string, lo, hi vec.Vec3) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/selection/pos1", token, PointRequest{Position: lo})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodPost, "/api/selection/pos2", token, PointRequest{Position: hi})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// decodeData разбирает поле data ответа
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success, "Ответ должен быть успешным: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp GenericResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error, "Ответ должен содержать описание ошибки: %s", rec.Body.String())
	return *resp.Error
}

func blockAt(t *testing.T, w *world.MemoryWorld, p vec.Vec3) block.BlockID {
	t.Helper()
	v, err := w.BlockAt(p)
	require.NoError(t, err)
	return v.ID
}

func TestHealthAndAuthentication(t *testing.T) {
	env := newTestEnv(t, 1000)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "Без токена доступ запрещён")

	rec = env.do(t, http.MethodPost, "/api/token", "", TokenRequest{Operator: "alice", Key: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "Неверный ключ не даёт токен")
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)

	token := env.login(t, "alice", "alice-key")
	rec = env.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats map[string]any
	decodeData(t, rec, &stats)
	assert.Equal(t, "test", stats["world"])
	assert.EqualValues(t, 0, stats["queued_jobs"], "Очередь пуста")
}

func TestSetAndUndo(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")
	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(2, 66, 2))

	rec := env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res CommandResult
	decodeData(t, rec, &res)
	assert.Equal(t, 27, res.Affected, "Заполняется весь куб 3x3x3")
	assert.True(t, res.Committed, "Транзакция попадает в журнал")
	assert.Equal(t, block.StoneBlockID, blockAt(t, env.world, vec.New(1, 65, 1)))

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replay ReplayResult
	decodeData(t, rec, &replay)
	assert.Equal(t, 1, replay.Done)
	assert.Equal(t, 1, replay.Redo)
	assert.Equal(t, block.AirBlockID, blockAt(t, env.world, vec.New(1, 65, 1)), "Undo восстанавливает воздух")

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "Больше нечего отменять")

	rec = env.do(t, http.MethodPost, "/api/history/redo", token, HistoryRequest{Times: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.StoneBlockID, blockAt(t, env.world, vec.New(1, 65, 1)), "Redo повторяет правку")
}

func TestEditWithoutSelection(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")

	rec := env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "incomplete_region", decodeError(t, rec).Code)

	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(1, 64, 1))
	rec = env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Шаблон обязателен")
	assert.Equal(t, "bad_request", decodeError(t, rec).Code)
}

func TestChangeLimit(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")
	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(2, 66, 2))

	limit := 5
	rec := env.do(t, http.MethodPost, "/api/settings", token, SettingsRequest{Limit: &limit})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "max_changed_blocks", body.Code)
	assert.EqualValues(t, 5, body.Details["limit"])
	assert.EqualValues(t, 5, body.Details["changes"], "Применённая часть остаётся в транзакции")

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "Частичная правка отменяема: %s", rec.Body.String())
	for x := 0; x <= 2; x++ {
		for z := 0; z <= 2; z++ {
			assert.Equal(t, block.AirBlockID, blockAt(t, env.world, vec.New(x, 64, z)))
		}
	}
}

func TestCalc(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")

	rec := env.do(t, http.MethodPost, "/api/calc", token, map[string]string{"expression": "1 + 2 * 3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Result float64 `json:"result"`
	}
	decodeData(t, rec, &res)
	assert.Equal(t, 7.0, res.Result)

	rec = env.do(t, http.MethodPost, "/api/calc", token, map[string]string{"expression": "1 +"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "syntax_error", body.Code)
	assert.Contains(t, body.Details, "pos")
}

func TestQueuedOperation(t *testing.T) {
	env := newTestEnv(t, 0)
	alice := env.login(t, "alice", "alice-key")
	bob := env.login(t, "bob", "bob-key")
	env.selectCuboid(t, alice, vec.New(0, 64, 0), vec.New(3, 67, 3))

	rec := env.do(t, http.MethodPost, "/api/edit/set", alice, EditRequest{Pattern: "dirt"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var queued QueuedResult
	decodeData(t, rec, &queued)
	assert.Equal(t, "set", queued.Label)

	path := "/api/operations/" + queued.JobID.String()
	rec = env.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "Чужие операции не видны")

	for i := 0; i < 100 && env.scheduler.Pending() > 0; i++ {
		env.scheduler.Tick(context.Background())
	}
	require.Zero(t, env.scheduler.Pending(), "Операция должна завершиться")

	rec = env.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info operation.JobInfo
	decodeData(t, rec, &info)
	assert.Equal(t, "completed", info.Status)
	assert.Greater(t, info.Slices, 1, "Операция выполняется несколькими срезами")
	assert.Equal(t, block.DirtBlockID, blockAt(t, env.world, vec.New(3, 67, 3)))

	rec = env.do(t, http.MethodPost, "/api/history/undo", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, "Фоновая правка попадает в журнал: %s", rec.Body.String())
	assert.Equal(t, block.AirBlockID, blockAt(t, env.world, vec.New(3, 67, 3)))
}

func TestCommandsWaitForPendingOperation(t *testing.T) {
	env := newTestEnv(t, 10)
	token := env.login(t, "alice", "alice-key")
	corner := vec.New(0, 64, 0)

	env.selectCuboid(t, token, corner, vec.New(3, 67, 3))
	rec := env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "dirt"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// маленькая правка встаёт в очередь за незавершённой
	env.selectCuboid(t, token, corner, corner)
	rec = env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	require.Equal(t, http.StatusAccepted, rec.Code, "Правка ждёт фоновую операцию: %s", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "operation_pending", decodeError(t, rec).Code)
	rec = env.do(t, http.MethodPost, "/api/history/clear", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	for i := 0; i < 100 && env.scheduler.Pending() > 0; i++ {
		env.scheduler.Tick(context.Background())
	}
	require.Zero(t, env.scheduler.Pending())
	assert.Equal(t, block.StoneBlockID, blockAt(t, env.world, corner), "Поздняя правка применена последней")
	assert.Equal(t, block.DirtBlockID, blockAt(t, env.world, vec.New(3, 67, 3)))

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.DirtBlockID, blockAt(t, env.world, corner), "Первая отмена снимает позднюю правку")

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.AirBlockID, blockAt(t, env.world, corner), "Вторая отмена возвращает исходный воздух")
	assert.Equal(t, block.AirBlockID, blockAt(t, env.world, vec.New(3, 67, 3)))

	// без очереди правки снова выполняются сразу
	rec = env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCancelQueuedOperation(t *testing.T) {
	env := newTestEnv(t, 0)
	token := env.login(t, "alice", "alice-key")
	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(7, 71, 7))

	rec := env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var queued QueuedResult
	decodeData(t, rec, &queued)

	env.scheduler.Tick(context.Background())
	rec = env.do(t, http.MethodDelete, "/api/operations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for i := 0; i < 10 && env.scheduler.Pending() > 0; i++ {
		env.scheduler.Tick(context.Background())
	}
	rec = env.do(t, http.MethodGet, "/api/operations/"+queued.JobID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info operation.JobInfo
	decodeData(t, rec, &info)
	assert.Equal(t, "cancelled", info.Status)
	assert.Equal(t, block.AirBlockID, blockAt(t, env.world, vec.New(7, 71, 7)), "Отменённая операция не доходит до конца")
}

func TestCopyPaste(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")
	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(1, 65, 1))

	rec := env.do(t, http.MethodPost, "/api/edit/set", token, EditRequest{Pattern: "stone"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/clipboard/paste", token, PasteRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code, "Пустой буфер")
	assert.Equal(t, "clipboard_empty", decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/clipboard/copy", token, CopyRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	to := vec.New(10, 64, 0)
	rec = env.do(t, http.MethodPost, "/api/clipboard/paste", token, PasteRequest{Position: &to, Select: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.StoneBlockID, blockAt(t, env.world, vec.New(10, 64, 0)))
	assert.Equal(t, block.StoneBlockID, blockAt(t, env.world, vec.New(11, 65, 1)))

	rec = env.do(t, http.MethodGet, "/api/selection", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sel SelectionResponse
	decodeData(t, rec, &sel)
	assert.True(t, sel.Defined, "Вставленная область выделена")

	rec = env.do(t, http.MethodPost, "/api/clipboard/rotate", token, map[string]float64{"y": 45})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "Поворот только на кратный 90 угол")
}

func TestSelectionAdjust(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")
	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(2, 66, 2))

	up := vec.UnitY
	rec := env.do(t, http.MethodPost, "/api/selection/expand", token, AdjustRequest{Amount: 2, Direction: &up})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/count?mask=air", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var count struct {
		Count  int   `json:"count"`
		Volume int64 `json:"volume"`
	}
	decodeData(t, rec, &count)
	assert.EqualValues(t, 45, count.Volume, "3x5x3 после расширения вверх")
	assert.Equal(t, 45, count.Count)

	rec = env.do(t, http.MethodPost, "/api/selection/shift", token, AdjustRequest{Amount: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Направление обязательно")
}

func TestSignature(t *testing.T) {
	sig := Signature([]byte(`{"a":1}`), "secret")
	assert.Equal(t, sig, Signature([]byte(`{"a":1}`), "secret"), "Подпись детерминирована")
	assert.NotEqual(t, sig, Signature([]byte(`{"a":1}`), "other"))
	assert.Len(t, sig, len("sha256=")+64)
}

func TestBiomeCommands(t *testing.T) {
	env := newTestEnv(t, 1000)
	token := env.login(t, "alice", "alice-key")
	env.selectCuboid(t, token, vec.New(0, 64, 0), vec.New(2, 66, 2))

	rec := env.do(t, http.MethodGet, "/api/biomes?page=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list struct {
		Total  int         `json:"total"`
		Pages  int         `json:"pages"`
		Biomes []BiomeInfo `json:"biomes"`
	}
	decodeData(t, rec, &list)
	assert.Equal(t, len(world.Biomes()), list.Total)
	assert.Equal(t, 1, list.Pages)
	assert.Equal(t, "plains", list.Biomes[0].Name)

	rec = env.do(t, http.MethodPost, "/api/edit/setbiome", token, EditRequest{Biome: "desert"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res CommandResult
	decodeData(t, rec, &res)
	assert.Equal(t, 9, res.Affected, "Биом меняется на каждой колонке 3x3")
	assert.True(t, res.Committed)

	var info struct {
		Where  string      `json:"where"`
		Biomes []BiomeInfo `json:"biomes"`
	}
	rec = env.do(t, http.MethodGet, "/api/biome?x=1&z=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &info)
	require.Len(t, info.Biomes, 1)
	assert.Equal(t, "desert", info.Biomes[0].Name)

	rec = env.do(t, http.MethodGet, "/api/biome?x=5&z=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &info)
	assert.Equal(t, "plains", info.Biomes[0].Name, "Колонка вне выделения не тронута")

	rec = env.do(t, http.MethodPost, "/api/history/undo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/biome", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &info)
	assert.Equal(t, "selection", info.Where)
	assert.Equal(t, []BiomeInfo{{ID: int(world.BiomePlains), Name: "plains"}}, info.Biomes, "Undo возвращает биомы")

	rec = env.do(t, http.MethodPost, "/api/edit/setbiome", token, EditRequest{Biome: "jungle", AtPosition: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &res)
	assert.Equal(t, 1, res.Affected, "Только колонка точки привязки")
	rec = env.do(t, http.MethodGet, "/api/biome?position=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &info)
	assert.Equal(t, "jungle", info.Biomes[0].Name)

	rec = env.do(t, http.MethodPost, "/api/edit/generatebiome", token, EditRequest{Biome: "swamp", Expression: "x == 1", Coords: "raw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &res)
	assert.Equal(t, 3, res.Affected, "Формула выбирает колонки с x = 1")
	b, err := env.world.BiomeAt(vec.Vec2{X: 1, Z: 2})
	require.NoError(t, err)
	assert.Equal(t, world.BiomeSwamp, b)

	rec = env.do(t, http.MethodPost, "/api/edit/setbiome", token, EditRequest{Biome: "nether"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Неизвестный биом отклоняется")
	rec = env.do(t, http.MethodGet, "/api/biome?x=a&z=1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
