package function

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/annel0/blockedit/internal/util"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// TreeType вид дерева
type TreeType int

const (
	TreeOak TreeType = iota
	TreeBig
	TreeBirch
	TreePine
	TreeRedwood
	TreeRandom
)

var treeNames = map[string]TreeType{
	"tree":    TreeOak,
	"oak":     TreeOak,
	"big":     TreeBig,
	"bigtree": TreeBig,
	"birch":   TreeBirch,
	"pine":    TreePine,
	"redwood": TreeRedwood,
	"random":  TreeRandom,
}

// ParseTreeType разбирает имя вида дерева
func ParseTreeType(s string) (TreeType, error) {
	if t, ok := treeNames[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("неизвестный вид дерева: %q", s)
}

// treeShape параметры формы дерева
type treeShape struct {
	minHeight    int
	heightSpread int
	canopyRadius int
	canopyHeight int
	conical      bool
	logData      uint8
	leavesData   uint8
}

var treeShapes = map[TreeType]treeShape{
	TreeOak:     {minHeight: 4, heightSpread: 3, canopyRadius: 2, canopyHeight: 4},
	TreeBig:     {minHeight: 8, heightSpread: 5, canopyRadius: 4, canopyHeight: 6},
	TreeBirch:   {minHeight: 5, heightSpread: 2, canopyRadius: 2, canopyHeight: 4, logData: 2, leavesData: 2},
	TreePine:    {minHeight: 6, heightSpread: 4, canopyRadius: 3, canopyHeight: 7, conical: true, logData: 1, leavesData: 1},
	TreeRedwood: {minHeight: 12, heightSpread: 8, canopyRadius: 4, canopyHeight: 10, conical: true, logData: 1, leavesData: 1},
}

// TreeGenerator сажает дерево на траву или землю
type TreeGenerator struct {
	Target   Target
	Type     TreeType
	rng      *rand.Rand
	affected int
}

// NewTreeGenerator создаёт генератор деревьев
func NewTreeGenerator(t Target, typ TreeType, seed int64) *TreeGenerator {
	return &TreeGenerator{Target: t, Type: typ, rng: util.NewRand(seed)}
}

// Apply получает координату поверхности и сажает дерево над ней
func (g *TreeGenerator) Apply(p vec.Vec3) (bool, error) {
	v, err := g.Target.BlockAt(p)
	if err != nil {
		return false, err
	}
	switch v.ID {
	case block.GrassBlockID, block.DirtBlockID:
		if err := g.grow(p.Add(vec.UnitY)); err != nil {
			return false, err
		}
		g.affected++
		return true, nil
	case block.SnowBlockID:
		// Снежный слой убирается, дерево сажается под ним
		if _, err := g.Target.SetBlock(p, block.Air); err != nil {
			return false, err
		}
		return g.Apply(p.Sub(vec.UnitY))
	}
	return false, nil
}

func (g *TreeGenerator) Affected() int { return g.affected }

func (g *TreeGenerator) grow(base vec.Vec3) error {
	typ := g.Type
	if typ == TreeRandom {
		typ = TreeType(g.rng.IntN(int(TreeRandom)))
	}
	shape := treeShapes[typ]
	height := shape.minHeight + g.rng.IntN(shape.heightSpread+1)

	log := block.NewValue(block.LogBlockID, shape.logData)
	leaves := block.NewValue(block.LeavesBlockID, shape.leavesData)

	top := base.Add(vec.New(0, height-1, 0))
	canopyBottom := top.Y - shape.canopyHeight + 1
	for y := canopyBottom; y <= top.Y+1; y++ {
		r := shape.canopyRadius
		if shape.conical {
			// Конус: радиус растёт к низу кроны
			r = (top.Y + 1 - y) * shape.canopyRadius / shape.canopyHeight
		} else if y >= top.Y {
			r = max(1, shape.canopyRadius-1)
		}
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				corner := (dx == -r || dx == r) && (dz == -r || dz == r)
				if corner && r > 0 && g.rng.IntN(2) == 0 {
					continue
				}
				if err := g.placeIfFree(vec.New(top.X+dx, y, top.Z+dz), leaves); err != nil {
					return err
				}
			}
		}
	}
	for y := 0; y < height; y++ {
		if _, err := g.Target.SetBlock(base.Add(vec.New(0, y, 0)), log); err != nil {
			return err
		}
	}
	return nil
}

func (g *TreeGenerator) placeIfFree(p vec.Vec3, v block.Value) error {
	cur, err := g.Target.BlockAt(p)
	if err != nil {
		return err
	}
	if !cur.IsAir() && !block.IsPlant(cur.ID) {
		return nil
	}
	_, err = g.Target.SetBlock(p, v)
	return err
}

// FloraGenerator сажает траву и цветы на траву, кактусы и сухие кусты на песок
type FloraGenerator struct {
	Target   Target
	rng      *rand.Rand
	affected int
}

// NewFloraGenerator создаёт генератор растительности
func NewFloraGenerator(t Target, seed int64) *FloraGenerator {
	return &FloraGenerator{Target: t, rng: util.NewRand(seed)}
}

func (g *FloraGenerator) pick(table []weightedBlock) block.Value {
	total := 0
	for _, e := range table {
		total += e.weight
	}
	x := g.rng.IntN(total)
	for _, e := range table {
		if x < e.weight {
			return block.Of(e.id)
		}
		x -= e.weight
	}
	return block.Of(table[0].id)
}

type weightedBlock struct {
	id     block.BlockID
	weight int
}

var (
	temperateFlora = []weightedBlock{{block.TallGrassBlockID, 300}, {block.FlowerBlockID, 5}, {block.RoseBlockID, 5}}
	desertFlora    = []weightedBlock{{block.DeadBushBlockID, 30}, {block.CactusBlockID, 1}}
)

func (g *FloraGenerator) Apply(p vec.Vec3) (bool, error) {
	v, err := g.Target.BlockAt(p)
	if err != nil {
		return false, err
	}
	above := p.Add(vec.UnitY)
	var table []weightedBlock
	switch v.ID {
	case block.GrassBlockID:
		table = temperateFlora
	case block.SandBlockID:
		table = desertFlora
	default:
		return false, nil
	}
	cur, err := g.Target.BlockAt(above)
	if err != nil {
		return false, err
	}
	if !cur.IsAir() {
		return false, nil
	}
	changed, err := g.Target.SetBlock(above, g.pick(table))
	if err != nil {
		return false, err
	}
	if changed {
		g.affected++
	}
	return changed, nil
}

func (g *FloraGenerator) Affected() int { return g.affected }

// PumpkinPatch сажает тыкву и плети вокруг неё на траве
type PumpkinPatch struct {
	Target   Target
	rng      *rand.Rand
	affected int
}

// NewPumpkinPatch создаёт генератор тыквенных грядок
func NewPumpkinPatch(t Target, seed int64) *PumpkinPatch {
	return &PumpkinPatch{Target: t, rng: util.NewRand(seed)}
}

var horizontal = []vec.Vec3{vec.UnitX, vec.UnitX.Neg(), vec.UnitZ, vec.UnitZ.Neg()}

func (g *PumpkinPatch) Apply(p vec.Vec3) (bool, error) {
	v, err := g.Target.BlockAt(p)
	if err != nil {
		return false, err
	}
	if v.ID != block.GrassBlockID {
		return false, nil
	}
	pos := p.Add(vec.UnitY)
	if _, err := g.Target.SetBlock(pos, block.Of(block.PumpkinBlockID)); err != nil {
		return false, err
	}
	// Плети расходятся случайным блужданием по поверхности
	steps := 4 + g.rng.IntN(5)
	cur := pos
	for i := 0; i < steps; i++ {
		cur = cur.Add(horizontal[g.rng.IntN(len(horizontal))])
		below, err := g.Target.BlockAt(cur.Sub(vec.UnitY))
		if err != nil {
			return false, err
		}
		here, err := g.Target.BlockAt(cur)
		if err != nil {
			return false, err
		}
		if below.ID != block.GrassBlockID || !here.IsAir() {
			continue
		}
		if _, err := g.Target.SetBlock(cur, block.Of(block.VineBlockID)); err != nil {
			return false, err
		}
	}
	g.affected++
	return true, nil
}

func (g *PumpkinPatch) Affected() int { return g.affected }
