package api

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/expression"
	"github.com/annel0/blockedit/internal/logging"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/storage"
)

// SettingsRequest настройки сессии оператора. nil поля не меняются.
type SettingsRequest struct {
	Mask      *string `json:"mask"` // пустая строка снимает маску
	Limit     *int    `json:"limit"`
	Fast      *bool   `json:"fast"`
	Placement *string `json:"placement"` // pos1 | center
}

// SettingsResponse текущие настройки сессии
type SettingsResponse struct {
	Mask      bool           `json:"mask"`
	Limit     int            `json:"limit"`
	Fast      bool           `json:"fast"`
	Placement string         `json:"placement"`
	Clipboard *ClipboardInfo `json:"clipboard,omitempty"`
}

func (rs *RestServer) handleSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}

	if req.Limit != nil {
		if err := sess.SetBlockChangeLimit(*req.Limit); err != nil {
			renderError(c, err, nil)
			return
		}
	}
	if req.Mask != nil {
		if *req.Mask == "" {
			sess.SetMask(nil)
		} else {
			m, err := mask.Parse(rs.world, *req.Mask)
			if err != nil {
				renderError(c, badRequest(err.Error()), nil)
				return
			}
			sess.SetMask(m)
		}
	}
	if req.Fast != nil {
		sess.SetFastMode(*req.Fast)
	}

	if req.Placement != nil {
		switch *req.Placement {
		case "pos1":
			sess.SetPlaceAtPos1(true)
		case "center":
			sess.SetPlaceAtPos1(false)
		default:
			renderError(c, badRequest("placement: ожидается pos1 или center"), nil)
			return
		}
	}
	placement := "pos1"
	if !sess.PlaceAtPos1() {
		placement = "center"
	}

	respond(c, SettingsResponse{
		Mask:      sess.Mask() != nil,
		Limit:     sess.BlockChangeLimit(),
		Fast:      sess.FastMode(),
		Placement: placement,
		Clipboard: clipboardOf(c.Request.Context(), sess),
	})
}

// handleCount число блоков выделения, прошедших маску
func (rs *RestServer) handleCount(c *gin.Context) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	r, err := sess.Selection(rs.world.Name())
	if err != nil {
		renderError(c, err, nil)
		return
	}
	es := sess.CreateEditSession(rs.world, "count")
	src := c.Query("mask")
	if src == "" {
		renderError(c, badRequest("не задана маска"), nil)
		return
	}
	m, err := mask.Parse(es, src)
	if err != nil {
		renderError(c, badRequest(err.Error()), nil)
		return
	}
	n, err := es.CountBlocks(c.Request.Context(), r, m)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, gin.H{"count": n, "volume": r.Area()})
}

// handleDistribution распределение блоков выделения
func (rs *RestServer) handleDistribution(c *gin.Context) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	r, err := sess.Selection(rs.world.Name())
	if err != nil {
		renderError(c, err, nil)
		return
	}
	separate, _ := strconv.ParseBool(c.DefaultQuery("separate", "false"))
	es := sess.CreateEditSession(rs.world, "distr")
	dist, err := es.Distribution(c.Request.Context(), r, separate)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, gin.H{"total": r.Area(), "blocks": dist})
}

// handleCalc вычисляет формулу без переменных
func (rs *RestServer) handleCalc(c *gin.Context) {
	var req struct {
		Expression string `json:"expression" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("не задана формула"), nil)
		return
	}
	prog, err := expression.Compile(req.Expression)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	v, err := prog.Evaluate()
	if err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, gin.H{"expression": req.Expression, "result": v})
}

var snapshotName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// handleTakeSnapshot сохраняет секции выделения в новый снимок
func (rs *RestServer) handleTakeSnapshot(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !snapshotName.MatchString(req.Name) || req.Name == "." || req.Name == ".." {
		renderError(c, badRequest("неверное имя снимка"), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	r, err := sess.Selection(rs.world.Name())
	if err != nil {
		renderError(c, err, nil)
		return
	}
	path := filepath.Join(rs.snapshotDir, req.Name)
	if _, err := os.Stat(path); err == nil {
		renderError(c, badRequest(fmt.Sprintf("снимок %s уже существует", req.Name)), nil)
		return
	}
	chunks, err := storage.TakeSnapshot(rs.world, r, path)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	logging.GetAPILogger().Info("📸 Оператор %s сохранил снимок %s (%d секций)", sess.Operator(), req.Name, chunks)
	respond(c, gin.H{"name": req.Name, "chunks": chunks})
}

// handleListSnapshots имена доступных снимков
func (rs *RestServer) handleListSnapshots(c *gin.Context) {
	entries, err := os.ReadDir(rs.snapshotDir)
	if err != nil && !os.IsNotExist(err) {
		renderError(c, err, nil)
		return
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	respond(c, names)
}
