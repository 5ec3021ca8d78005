package api

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/clipboard"
	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/selector"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/vec"
)

// CopyRequest параметры copy и cut
type CopyRequest struct {
	Mask     string `json:"mask"`
	Entities bool   `json:"entities"`
	Leave    string `json:"leave"` // только cut: шаблон на месте вырезанного
}

// PasteRequest параметры paste
type PasteRequest struct {
	Position  *vec.Vec3 `json:"position"`
	IgnoreAir bool      `json:"ignore_air"`
	AtOrigin  bool      `json:"at_origin"`
	Select    bool      `json:"select"` // выделить вставленную область
}

// ClipboardInfo сводка буфера обмена
type ClipboardInfo struct {
	Dimensions vec.Vec3 `json:"dimensions"`
	Origin     vec.Vec3 `json:"origin"`
	Blocks     int64    `json:"blocks"`
	Entities   int      `json:"entities"`
}

func clipboardInfo(cb *clipboard.Clipboard) ClipboardInfo {
	return ClipboardInfo{
		Dimensions: cb.Dimensions(),
		Origin:     cb.Origin,
		Blocks:     cb.Volume(),
		Entities:   len(cb.Entities),
	}
}

func (rs *RestServer) handleCopy(c *gin.Context) { rs.copyOrCut(c, false) }
func (rs *RestServer) handleCut(c *gin.Context)  { rs.copyOrCut(c, true) }

func (rs *RestServer) copyOrCut(c *gin.Context, cut bool) {
	var req CopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	label := "copy"
	if cut {
		label = "cut"
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	worldName := rs.world.Name()
	r, err := sess.Selection(worldName)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	r = r.Clone()
	origin, err := sess.PlacementPosition(worldName)
	if err != nil {
		renderError(c, err, nil)
		return
	}

	es := sess.CreateEditSession(rs.world, label)
	opts := clipboard.CopyOptions{Entities: req.Entities}
	if req.Mask != "" {
		if opts.Mask, err = mask.Parse(es, req.Mask); err != nil {
			renderError(c, badRequest(err.Error()), nil)
			return
		}
	}

	cmd := &command{label: label, volume: region.Volume(r)}
	var cb *clipboard.Clipboard
	if cut {
		var leave pattern.Pattern
		if req.Leave != "" {
			if leave, err = pattern.Parse(req.Leave, rs.seed); err != nil {
				renderError(c, badRequest(err.Error()), nil)
				return
			}
		}
		var counter function.Counted
		cmd.op, cb, counter = clipboard.PrepareCut(es, r, origin, leave, opts)
		cmd.counters = []function.Counted{counter}
		cmd.volume *= 2
	} else {
		cmd.op, cb = clipboard.PrepareCopy(es, r, origin, opts)
	}
	cmd.finish = func(ctx context.Context) error {
		if opts.Entities {
			if err := takeEntities(es, r, cb, cut); err != nil {
				return err
			}
		}
		return sess.SetClipboard(ctx, cb)
	}
	rs.execute(c, sess, es, cmd)
}

// takeEntities переносит сущности области в буфер; при вырезании удаляет их из мира
func takeEntities(es *edit.EditSession, r region.Region, cb *clipboard.Clipboard, remove bool) error {
	entities, err := es.World().Entities(r)
	if err != nil {
		return fmt.Errorf("ошибка чтения сущностей: %w", err)
	}
	cb.Entities = entities
	if !remove {
		return nil
	}
	for _, e := range entities {
		if err := es.World().RemoveEntity(e.ID); err != nil {
			return fmt.Errorf("ошибка удаления сущности %d: %w", e.ID, err)
		}
	}
	return nil
}

func (rs *RestServer) handlePaste(c *gin.Context) {
	var req PasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	ctx := c.Request.Context()
	cb, err := sess.Clipboard(ctx)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	cb = cb.Clone()

	worldName := rs.world.Name()
	var to vec.Vec3
	switch {
	case req.AtOrigin:
		to = cb.Origin
	case req.Position != nil:
		to = *req.Position
	default:
		if to, err = sess.PlacementPosition(worldName); err != nil {
			renderError(c, err, nil)
			return
		}
	}

	es := sess.CreateEditSession(rs.world, "paste")
	op, counter := cb.PreparePaste(es, to, req.IgnoreAir)
	cmd := &command{label: "paste", op: op, counters: []function.Counted{counter}, volume: cb.Volume()}
	if req.Select {
		pasted := cb.PastedRegion(to)
		cmd.finish = func(context.Context) error {
			sel := sess.SetSelectorKind(worldName, selector.KindCuboid)
			sel.SelectPrimary(pasted.MinimumPoint(), selector.Limits{})
			sel.SelectSecondary(pasted.MaximumPoint(), selector.Limits{})
			return nil
		}
	}
	rs.execute(c, sess, es, cmd)
}

func (rs *RestServer) handleRotate(c *gin.Context) {
	var req struct {
		Y float64 `json:"y"`
		X float64 `json:"x"`
		Z float64 `json:"z"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	rs.transformClipboard(c, func(cb *clipboard.Clipboard) error {
		return cb.Rotate(req.Y, req.X, req.Z)
	})
}

func (rs *RestServer) handleFlip(c *gin.Context) {
	var req struct {
		Direction vec.Vec3 `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	if req.Direction == vec.Zero {
		renderError(c, badRequest("не задано направление"), nil)
		return
	}
	rs.transformClipboard(c, func(cb *clipboard.Clipboard) error {
		cb.Flip(req.Direction)
		return nil
	})
}

// transformClipboard применяет преобразование к буферу и сохраняет его
func (rs *RestServer) transformClipboard(c *gin.Context, apply func(cb *clipboard.Clipboard) error) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	ctx := c.Request.Context()
	cb, err := sess.Clipboard(ctx)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	cb = cb.Clone()
	if err := apply(cb); err != nil {
		renderError(c, err, nil)
		return
	}
	if err := sess.SetClipboard(ctx, cb); err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, clipboardInfo(cb))
}

func (rs *RestServer) handleClipboardClear(c *gin.Context) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	if err := sess.ClearClipboard(c.Request.Context()); err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, nil)
}

// clipboardOf сводка текущего буфера, nil если пуст
func clipboardOf(ctx context.Context, sess *session.LocalSession) *ClipboardInfo {
	cb, err := sess.Clipboard(ctx)
	if err != nil {
		return nil
	}
	info := clipboardInfo(cb)
	return &info
}
