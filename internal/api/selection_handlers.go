package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/selector"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/vec"
)

// PointRequest точка выделения
type PointRequest struct {
	Position vec.Vec3 `json:"position"`
}

// AdjustRequest изменение области выделения. Amount блоков в направлении
// Direction, Reverse блоков в противоположном. Vertical для expand
// растягивает выделение на всю высоту мира.
type AdjustRequest struct {
	Amount     int       `json:"amount"`
	Reverse    int       `json:"reverse"`
	Direction  *vec.Vec3 `json:"direction"`
	Vertical   bool      `json:"vertical"`
	Horizontal bool      `json:"horizontal"` // только для outset/inset
}

// SelectionResponse состояние выделения после команды
type SelectionResponse struct {
	Changed bool                  `json:"changed"`
	Defined bool                  `json:"defined"`
	Info    session.SelectionInfo `json:"info"`
}

func (rs *RestServer) selectionResponse(c *gin.Context, sess *session.LocalSession, changed bool) {
	info, err := sess.Info(rs.world.Name())
	var incomplete *selector.IncompleteRegionError
	if err != nil && !errors.As(err, &incomplete) {
		renderError(c, err, nil)
		return
	}
	respond(c, SelectionResponse{Changed: changed, Defined: err == nil, Info: info})
}

func (rs *RestServer) handleSelectionInfo(c *gin.Context) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	rs.selectionResponse(c, sess, false)
}

func (rs *RestServer) handlePos1(c *gin.Context) { rs.selectPoint(c, true) }
func (rs *RestServer) handlePos2(c *gin.Context) { rs.selectPoint(c, false) }

func (rs *RestServer) selectPoint(c *gin.Context, primary bool) {
	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	var changed bool
	if primary {
		changed = sess.SelectPrimary(rs.world.Name(), req.Position)
	} else {
		changed = sess.SelectSecondary(rs.world.Name(), req.Position)
	}
	rs.selectionResponse(c, sess, changed)
}

func (rs *RestServer) handleSelectChunk(c *gin.Context) {
	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	if _, err := sess.SelectChunk(rs.world, req.Position); err != nil {
		renderError(c, err, nil)
		return
	}
	rs.selectionResponse(c, sess, true)
}

func (rs *RestServer) handleSelectionClear(c *gin.Context) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	sess.ClearSelection(rs.world.Name())
	rs.selectionResponse(c, sess, true)
}

func (rs *RestServer) handleSelectionType(c *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("не задан тип выделения"), nil)
		return
	}
	kind, err := selector.ParseKind(req.Type)
	if err != nil {
		renderError(c, badRequest(err.Error()), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	sess.SetSelectorKind(rs.world.Name(), kind)
	rs.selectionResponse(c, sess, true)
}

// changes векторы изменения области из запроса
func (req *AdjustRequest) changes() ([]vec.Vec3, error) {
	if req.Direction == nil || *req.Direction == vec.Zero {
		return nil, badRequest("не задано направление")
	}
	if req.Amount <= 0 {
		return nil, badRequest("величина должна быть положительной")
	}
	dir := *req.Direction
	out := []vec.Vec3{dir.MulScalar(req.Amount)}
	if req.Reverse > 0 {
		out = append(out, dir.Neg().MulScalar(req.Reverse))
	}
	return out, nil
}

// adjustHandler общий обработчик изменения области выделения
func (rs *RestServer) adjustHandler(c *gin.Context, apply func(sess *session.LocalSession, req *AdjustRequest) (region.Region, error)) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, badRequest("неверный формат запроса"), nil)
		return
	}
	sess, found := rs.session(c)
	if !found {
		return
	}
	if _, err := apply(sess, &req); err != nil {
		renderError(c, err, nil)
		return
	}
	rs.selectionResponse(c, sess, true)
}

func (rs *RestServer) handleExpand(c *gin.Context) {
	rs.adjustHandler(c, func(sess *session.LocalSession, req *AdjustRequest) (region.Region, error) {
		if req.Vertical {
			return sess.ExpandVert(rs.world)
		}
		changes, err := req.changes()
		if err != nil {
			return nil, err
		}
		return sess.ExpandSelection(rs.world.Name(), changes...)
	})
}

func (rs *RestServer) handleContract(c *gin.Context) {
	rs.adjustHandler(c, func(sess *session.LocalSession, req *AdjustRequest) (region.Region, error) {
		changes, err := req.changes()
		if err != nil {
			return nil, err
		}
		return sess.ContractSelection(rs.world.Name(), changes...)
	})
}

func (rs *RestServer) handleShift(c *gin.Context) {
	rs.adjustHandler(c, func(sess *session.LocalSession, req *AdjustRequest) (region.Region, error) {
		changes, err := req.changes()
		if err != nil {
			return nil, err
		}
		return sess.ShiftSelection(rs.world.Name(), changes[0])
	})
}

func (rs *RestServer) handleOutset(c *gin.Context) {
	rs.adjustHandler(c, func(sess *session.LocalSession, req *AdjustRequest) (region.Region, error) {
		if req.Amount <= 0 {
			return nil, badRequest("величина должна быть положительной")
		}
		return sess.OutsetSelection(rs.world.Name(), req.Amount, req.Horizontal, req.Vertical)
	})
}

func (rs *RestServer) handleInset(c *gin.Context) {
	rs.adjustHandler(c, func(sess *session.LocalSession, req *AdjustRequest) (region.Region, error) {
		if req.Amount <= 0 {
			return nil, badRequest("величина должна быть положительной")
		}
		return sess.InsetSelection(rs.world.Name(), req.Amount, req.Horizontal, req.Vertical)
	})
}
