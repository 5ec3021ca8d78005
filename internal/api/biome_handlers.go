package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
)

// biomesPerPage размер страницы списка биомов
const biomesPerPage = 19

// BiomeInfo биом в ответах API
type BiomeInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func biomeInfos(list []world.BiomeType) []BiomeInfo {
	out := make([]BiomeInfo, 0, len(list))
	for _, b := range list {
		out = append(out, BiomeInfo{ID: int(b), Name: b.String()})
	}
	return out
}

// handleBiomeList постраничный список известных биомов
func (rs *RestServer) handleBiomeList(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	all := world.Biomes()
	pages := max(1, (len(all)+biomesPerPage-1)/biomesPerPage)
	from := min((page-1)*biomesPerPage, len(all))
	to := min(from+biomesPerPage, len(all))
	respond(c, gin.H{
		"page":   page,
		"pages":  pages,
		"total":  len(all),
		"biomes": biomeInfos(all[from:to]),
	})
}

// handleBiomeInfo биомы колонки (x, z), точки привязки (position=true) или всего выделения
func (rs *RestServer) handleBiomeInfo(c *gin.Context) {
	sess, found := rs.session(c)
	if !found {
		return
	}
	es := sess.CreateEditSession(rs.world, "biomeinfo")

	xs, zs := c.Query("x"), c.Query("z")
	if xs != "" || zs != "" {
		x, errX := strconv.Atoi(xs)
		z, errZ := strconv.Atoi(zs)
		if errX != nil || errZ != nil {
			renderError(c, badRequest("x и z должны быть целыми"), nil)
			return
		}
		respondBiomeAt(c, es.BiomeAt, vec.Vec2{X: x, Z: z}, "column")
		return
	}

	if position, _ := strconv.ParseBool(c.DefaultQuery("position", "false")); position {
		pos, err := sess.PlacementPosition(rs.world.Name())
		if err != nil {
			renderError(c, err, nil)
			return
		}
		respondBiomeAt(c, es.BiomeAt, pos.ToVec2(), "position")
		return
	}

	r, err := sess.Selection(rs.world.Name())
	if err != nil {
		renderError(c, err, nil)
		return
	}
	list, err := es.Biomes(r)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, gin.H{"where": "selection", "biomes": biomeInfos(list)})
}

func respondBiomeAt(c *gin.Context, at func(vec.Vec2) (world.BiomeType, error), v vec.Vec2, where string) {
	b, err := at(v)
	if err != nil {
		renderError(c, err, nil)
		return
	}
	respond(c, gin.H{"where": where, "column": v, "biomes": biomeInfos([]world.BiomeType{b})})
}
