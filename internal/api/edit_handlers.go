package api

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/blockedit/internal/edit"
	"github.com/annel0/blockedit/internal/function"
	"github.com/annel0/blockedit/internal/mask"
	"github.com/annel0/blockedit/internal/operation"
	"github.com/annel0/blockedit/internal/pattern"
	"github.com/annel0/blockedit/internal/region"
	"github.com/annel0/blockedit/internal/session"
	"github.com/annel0/blockedit/internal/storage"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world"
	"github.com/annel0/blockedit/internal/world/block"
)

// EditRequest аргументы команд правки. Каждая команда читает только свои поля.
type EditRequest struct {
	Pattern string `json:"pattern"`
	From    string `json:"from"` // маска отбора для replace, removenear, replacenear

	Position *vec.Vec3  `json:"position"` // центр; по умолчанию точка привязки выделения
	Points   []vec.Vec3 `json:"points"`   // узлы line и curve; по умолчанию из выделения
	Radius   float64    `json:"radius"`
	Radii    []float64  `json:"radii"` // rx, ry, rz для sphere и cylinder
	Height   int        `json:"height"`
	Size     int        `json:"size"`
	Hollow   bool       `json:"hollow"`

	Direction *vec.Vec3 `json:"direction"`
	Count     int       `json:"count"`
	Distance  int       `json:"distance"`
	CopyAir   bool      `json:"copy_air"`
	Leave     string    `json:"leave"` // шаблон на месте перемещённых блоков

	Iterations int     `json:"iterations"`
	Thickness  int     `json:"thickness"`
	Depth      int     `json:"depth"`
	Recursive  bool    `json:"recursive"`
	Density    float64 `json:"density"`
	Tree       string  `json:"tree"`
	NormalDirt bool    `json:"normal_dirt_only"`

	Expression string `json:"expression"`
	// Coords система координат формулы: normalized (по умолчанию), raw, offset, center
	Coords string `json:"coords"`

	Tension    float64 `json:"tension"`
	Bias       float64 `json:"bias"`
	Continuity float64 `json:"continuity"`
	Quality    float64 `json:"quality"`

	Flags    *function.RemovalFlags `json:"flags"`
	Snapshot string                 `json:"snapshot"`

	Biome      string `json:"biome"`
	AtPosition bool   `json:"at_position"` // setbiome только для колонки точки привязки
}

// commandContext окружение построителя команды
type commandContext struct {
	rs   *RestServer
	sess *session.LocalSession
	es   *edit.EditSession
	req  *EditRequest
}

type commandBuilder func(cc *commandContext) (*command, error)

func (cc *commandContext) worldName() string { return cc.rs.world.Name() }

// selection копия выделения оператора: фоновая операция не должна видеть
// последующих правок выделения
func (cc *commandContext) selection() (region.Region, error) {
	r, err := cc.sess.Selection(cc.worldName())
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

func (cc *commandContext) pattern() (pattern.Pattern, error) {
	return cc.parsePattern(cc.req.Pattern)
}

func (cc *commandContext) parsePattern(s string) (pattern.Pattern, error) {
	if strings.TrimSpace(s) == "" {
		return nil, badRequest("не задан шаблон")
	}
	p, err := pattern.Parse(s, cc.rs.seed)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	return p, nil
}

// fromMask маска отбора; пустая строка даёт nil
func (cc *commandContext) fromMask() (mask.Mask, error) {
	if strings.TrimSpace(cc.req.From) == "" {
		return nil, nil
	}
	m, err := mask.Parse(cc.es, cc.req.From)
	if err != nil {
		return nil, badRequest(err.Error())
	}
	return m, nil
}

// center точка приложения команды
func (cc *commandContext) center() (vec.Vec3, error) {
	if cc.req.Position != nil {
		return *cc.req.Position, nil
	}
	return cc.sess.PlacementPosition(cc.worldName())
}

func (cc *commandContext) radius(def float64) (float64, error) {
	r := cc.req.Radius
	if r <= 0 {
		r = def
	}
	if r <= 0 {
		return 0, badRequest("радиус должен быть положительным")
	}
	if err := cc.rs.edit.CheckRadius(r); err != nil {
		return 0, badRequest(err.Error())
	}
	return r, nil
}

func (cc *commandContext) apothem(def int) (int, error) {
	r, err := cc.radius(float64(def))
	return int(r), err
}

func (cc *commandContext) direction() (vec.Vec3, error) {
	if cc.req.Direction == nil {
		return vec.Zero, badRequest("не задано направление")
	}
	d := *cc.req.Direction
	if d == vec.Zero {
		return vec.Zero, badRequest("нулевое направление")
	}
	return d, nil
}

// sphereVolume оценка объёма шара для выбора между очередью и немедленным выполнением
func sphereVolume(r float64) int64 {
	side := int64(2*r + 1)
	return side * side * side
}

// regional команды над выделением с одним шаблоном
func regional(label string, prepare func(es *edit.EditSession, r region.Region, p pattern.Pattern) operation.Operation) commandBuilder {
	return func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		return &command{label: label, op: prepare(cc.es, r, p), volume: region.Volume(r)}, nil
	}
}

// editCommands команды /api/edit/<name>
var editCommands = map[string]commandBuilder{
	"set":    regional("set", (*edit.EditSession).PrepareSetBlocks),
	"walls":  regional("walls", (*edit.EditSession).PrepareMakeWalls),
	"faces":  regional("faces", (*edit.EditSession).PrepareMakeFaces),
	"center": regional("center", (*edit.EditSession).PrepareCenterBlocks),

	"replace": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		from, err := cc.fromMask()
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		return &command{label: "replace", op: cc.es.PrepareReplaceBlocks(r, from, p), volume: region.Volume(r)}, nil
	},

	"overlay": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		op, replace := cc.es.PrepareOverlayCuboidBlocks(r, p)
		return &command{label: "overlay", op: op, counters: []function.Counted{replace}, volume: region.Volume(r)}, nil
	},

	"naturalize": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		op, nat := cc.es.PrepareNaturalizeCuboidBlocks(r)
		return &command{label: "naturalize", op: op, counters: []function.Counted{nat}, volume: region.Volume(r)}, nil
	},

	"hollow": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		var p pattern.Pattern = pattern.Single(block.Air)
		if cc.req.Pattern != "" {
			if p, err = cc.pattern(); err != nil {
				return nil, err
			}
		}
		thickness := max(cc.req.Thickness, 1)
		return &command{label: "hollow", op: cc.es.PrepareHollowOutRegion(r, thickness, p), volume: region.Volume(r)}, nil
	},

	"smooth": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		op, counter := cc.es.PrepareSmooth(r, max(cc.req.Iterations, 1))
		return &command{label: "smooth", op: op, counters: []function.Counted{counter}, volume: region.Volume(r)}, nil
	},

	"stack": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		dir, err := cc.direction()
		if err != nil {
			return nil, err
		}
		count := max(cc.req.Count, 1)
		op := cc.es.PrepareStackCuboidRegion(r, dir, count, cc.req.CopyAir)
		return &command{label: "stack", op: op, volume: region.Volume(r) * int64(count)}, nil
	},

	"move": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		dir, err := cc.direction()
		if err != nil {
			return nil, err
		}
		var leave pattern.Pattern
		if cc.req.Leave != "" {
			if leave, err = cc.parsePattern(cc.req.Leave); err != nil {
				return nil, err
			}
		}
		distance := max(cc.req.Distance, 1)
		op := cc.es.PrepareMoveRegion(r, dir, distance, cc.req.CopyAir, leave)
		return &command{label: "move", op: op, volume: 2 * region.Volume(r)}, nil
	},

	"line": func(cc *commandContext) (*command, error) {
		nodes, err := cc.nodes(false)
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		radius := max(cc.req.Radius, 0)
		op := cc.es.PrepareDrawLine(p, nodes[0], nodes[1], radius, !cc.req.Hollow)
		return &command{label: "line", op: op, volume: -1}, nil
	},

	"curve": func(cc *commandContext) (*command, error) {
		nodes, err := cc.nodes(true)
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		params := edit.SplineParams{
			Tension:    cc.req.Tension,
			Bias:       cc.req.Bias,
			Continuity: cc.req.Continuity,
			Quality:    cc.req.Quality,
		}
		if params.Quality <= 0 {
			params.Quality = 10
		}
		radius := max(cc.req.Radius, 0)
		op := cc.es.PrepareDrawSpline(p, nodes, params, radius, !cc.req.Hollow)
		return &command{label: "curve", op: op, volume: -1}, nil
	},

	"generate": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		zero, unit, err := cc.shapeCoords(r)
		if err != nil {
			return nil, err
		}
		op, err := cc.es.PrepareMakeShape(r, zero, unit, p, cc.req.Expression, cc.req.Hollow)
		if err != nil {
			return nil, err
		}
		return &command{label: "generate", op: op, volume: region.Volume(r)}, nil
	},

	"setbiome": func(cc *commandContext) (*command, error) {
		b, err := cc.biome()
		if err != nil {
			return nil, err
		}
		var r region.Region
		if cc.req.AtPosition {
			pos, err := cc.center()
			if err != nil {
				return nil, err
			}
			r = region.NewCuboid(pos, pos)
		} else if r, err = cc.selection(); err != nil {
			return nil, err
		}
		op, replace := cc.es.PrepareSetBiomes(r, b)
		return &command{label: "setbiome", op: op, counters: []function.Counted{replace}, volume: columnCount(r)}, nil
	},

	"generatebiome": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		b, err := cc.biome()
		if err != nil {
			return nil, err
		}
		zero, unit, err := cc.shapeCoords(r)
		if err != nil {
			return nil, err
		}
		op, replace, err := cc.es.PrepareMakeBiomeShape(r, zero, unit, b, cc.req.Expression, cc.req.Hollow)
		if err != nil {
			return nil, err
		}
		return &command{label: "generatebiome", op: op, counters: []function.Counted{replace}, volume: 2 * columnCount(r)}, nil
	},

	"deform": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		zero, unit, err := cc.shapeCoords(r)
		if err != nil {
			return nil, err
		}
		op, err := cc.es.PrepareDeform(r, zero, unit, cc.req.Expression)
		if err != nil {
			return nil, err
		}
		return &command{label: "deform", op: op, volume: 2 * region.Volume(r)}, nil
	},

	"sphere": func(cc *commandContext) (*command, error) {
		pos, p, radii, err := cc.primitive(3)
		if err != nil {
			return nil, err
		}
		op := cc.es.PrepareMakeSphere(pos, p, radii[0], radii[1], radii[2], !cc.req.Hollow)
		return &command{label: "sphere", op: op, volume: sphereVolume(max(radii[0], radii[1], radii[2]))}, nil
	},

	"cylinder": func(cc *commandContext) (*command, error) {
		pos, p, radii, err := cc.primitive(2)
		if err != nil {
			return nil, err
		}
		height := cc.req.Height
		if height == 0 {
			height = 1
		}
		op := cc.es.PrepareMakeCylinder(pos, p, radii[0], radii[1], height, !cc.req.Hollow)
		side := int64(2*max(radii[0], radii[1]) + 1)
		return &command{label: "cylinder", op: op, volume: side * side * int64(max(height, -height))}, nil
	},

	"pyramid": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		if cc.req.Size <= 0 {
			return nil, badRequest("размер пирамиды должен быть положительным")
		}
		if err := cc.rs.edit.CheckRadius(float64(cc.req.Size)); err != nil {
			return nil, badRequest(err.Error())
		}
		op := cc.es.PrepareMakePyramid(pos, p, cc.req.Size, !cc.req.Hollow)
		return &command{label: "pyramid", op: op, volume: sphereVolume(float64(cc.req.Size))}, nil
	},

	"forest": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		tree := cc.req.Tree
		if tree == "" {
			tree = "tree"
		}
		typ, err := function.ParseTreeType(tree)
		if err != nil {
			return nil, badRequest(err.Error())
		}
		op, gen := cc.es.PrepareMakeForest(r, cc.density(5), typ)
		return &command{label: "forest", op: op, counters: []function.Counted{gen}, volume: region.Volume(r)}, nil
	},

	"flora": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		op, gen := cc.es.PrepareMakeFlora(r, cc.density(10))
		return &command{label: "flora", op: op, counters: []function.Counted{gen}, volume: region.Volume(r)}, nil
	},

	"pumpkins": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		apothem, err := cc.apothem(10)
		if err != nil {
			return nil, err
		}
		op, patch := cc.es.PrepareMakePumpkinPatches(pos, apothem)
		return &command{label: "pumpkins", op: op, counters: []function.Counted{patch}, volume: sphereVolume(float64(apothem))}, nil
	},

	"drain": func(cc *commandContext) (*command, error) {
		pos, radius, err := cc.around(0)
		if err != nil {
			return nil, err
		}
		return &command{label: "drain", op: cc.es.PrepareDrain(pos, radius), volume: -1}, nil
	},

	"fixwater": liquidFixer("fixwater", block.WaterBlockID, block.StationaryWaterBlockID),
	"fixlava":  liquidFixer("fixlava", block.LavaBlockID, block.StationaryLavaBlockID),

	"removeabove": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		apothem, err := cc.apothem(1)
		if err != nil {
			return nil, err
		}
		height := cc.req.Height
		if height <= 0 {
			height = cc.rs.world.MaximumPoint().Y - pos.Y
		}
		return &command{label: "removeabove", op: cc.es.PrepareRemoveAbove(pos, apothem, height), volume: int64((2*apothem - 1) * (2*apothem - 1) * height)}, nil
	},

	"removebelow": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		apothem, err := cc.apothem(1)
		if err != nil {
			return nil, err
		}
		height := cc.req.Height
		if height <= 0 {
			height = pos.Y - cc.rs.world.MinimumPoint().Y
		}
		return &command{label: "removebelow", op: cc.es.PrepareRemoveBelow(pos, apothem, height), volume: int64((2*apothem - 1) * (2*apothem - 1) * height)}, nil
	},

	"removenear": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		from, err := cc.requiredMask()
		if err != nil {
			return nil, err
		}
		apothem, err := cc.apothem(50)
		if err != nil {
			return nil, err
		}
		return &command{label: "removenear", op: cc.es.PrepareRemoveNear(pos, from, apothem), volume: sphereVolume(float64(apothem))}, nil
	},

	"replacenear": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		from, err := cc.fromMask()
		if err != nil {
			return nil, err
		}
		if from == nil {
			from = &mask.ExistingBlockMask{Extent: cc.es}
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		apothem, err := cc.apothem(0)
		if err != nil {
			return nil, err
		}
		return &command{label: "replacenear", op: cc.es.PrepareReplaceNear(pos, from, apothem, p), volume: sphereVolume(float64(apothem))}, nil
	},

	"fill": func(cc *commandContext) (*command, error) {
		pos, radius, err := cc.around(0)
		if err != nil {
			return nil, err
		}
		p, err := cc.pattern()
		if err != nil {
			return nil, err
		}
		depth := cc.req.Depth
		if depth <= 0 {
			depth = 1
		}
		return &command{label: "fill", op: cc.es.PrepareFillXZ(pos, p, radius, depth, cc.req.Recursive), volume: -1}, nil
	},

	"snow": func(cc *commandContext) (*command, error) {
		pos, radius, err := cc.around(10)
		if err != nil {
			return nil, err
		}
		return &command{label: "snow", op: cc.es.PrepareSimulateSnow(pos, radius), volume: -1}, nil
	},

	"thaw": func(cc *commandContext) (*command, error) {
		pos, radius, err := cc.around(10)
		if err != nil {
			return nil, err
		}
		return &command{label: "thaw", op: cc.es.PrepareThaw(pos, radius), volume: -1}, nil
	},

	"green": func(cc *commandContext) (*command, error) {
		pos, radius, err := cc.around(10)
		if err != nil {
			return nil, err
		}
		return &command{label: "green", op: cc.es.PrepareGreen(pos, radius, cc.req.NormalDirt), volume: -1}, nil
	},

	"extinguish": func(cc *commandContext) (*command, error) {
		pos, err := cc.center()
		if err != nil {
			return nil, err
		}
		radius, err := cc.apothem(40)
		if err != nil {
			return nil, err
		}
		return &command{label: "extinguish", op: cc.es.PrepareExtinguish(pos, radius), volume: sphereVolume(float64(radius))}, nil
	},

	"regen": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		return &command{label: "regen", op: cc.es.PrepareRegenerate(r), volume: region.Volume(r)}, nil
	},

	"butcher": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		flags := function.ButcherFlags()
		if cc.req.Flags != nil {
			flags = *cc.req.Flags
		}
		op, err := cc.es.PrepareRemoveEntities(r, flags, cc.rs.entities)
		if err != nil {
			return nil, err
		}
		return &command{label: "butcher", op: op, volume: 0}, nil
	},

	"restore": func(cc *commandContext) (*command, error) {
		r, err := cc.selection()
		if err != nil {
			return nil, err
		}
		name := filepath.Base(cc.req.Snapshot)
		if cc.req.Snapshot == "" || name == "." || name == ".." {
			return nil, badRequest("не задан снимок")
		}
		snap, err := storage.OpenSnapshot(filepath.Join(cc.rs.snapshotDir, name))
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия снимка %s: %w", name, err)
		}
		op, report := cc.es.PrepareRestore(r, snap)
		return &command{
			label:  "restore",
			op:     &closingOperation{Operation: op, close: snap.Close},
			volume: region.Volume(r),
			finish: func(context.Context) error { return report() },
		}, nil
	},
}

// closingOperation освобождает ресурс после завершения операции
type closingOperation struct {
	operation.Operation
	close  func() error
	closed bool
}

func (o *closingOperation) Advance(ctx context.Context, budget int) (operation.Progress, error) {
	p, err := o.Operation.Advance(ctx, budget)
	if (p.Done || err != nil) && !o.closed {
		o.closed = true
		if cerr := o.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return p, err
}

func liquidFixer(label string, moving, stationary block.BlockID) commandBuilder {
	return func(cc *commandContext) (*command, error) {
		pos, radius, err := cc.around(0)
		if err != nil {
			return nil, err
		}
		return &command{label: label, op: cc.es.PrepareFixLiquid(pos, radius, moving, stationary), volume: -1}, nil
	}
}

// around центр и радиус для команд вокруг точки
func (cc *commandContext) around(defRadius float64) (vec.Vec3, float64, error) {
	pos, err := cc.center()
	if err != nil {
		return vec.Zero, 0, err
	}
	radius, err := cc.radius(defRadius)
	if err != nil {
		return vec.Zero, 0, err
	}
	return pos, radius, nil
}

func (cc *commandContext) requiredMask() (mask.Mask, error) {
	m, err := cc.fromMask()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, badRequest("не задана маска отбора")
	}
	return m, nil
}

func (cc *commandContext) density(def float64) float64 {
	d := cc.req.Density
	if d <= 0 {
		d = def
	}
	return min(d, 100) / 100
}

// primitive центр, шаблон и n радиусов. Один радиус распространяется на все оси.
func (cc *commandContext) primitive(n int) (vec.Vec3, pattern.Pattern, []float64, error) {
	pos, err := cc.center()
	if err != nil {
		return vec.Zero, nil, nil, err
	}
	p, err := cc.pattern()
	if err != nil {
		return vec.Zero, nil, nil, err
	}
	radii := cc.req.Radii
	if len(radii) == 0 && cc.req.Radius > 0 {
		radii = []float64{cc.req.Radius}
	}
	switch len(radii) {
	case 1:
		radii = []float64{radii[0], radii[0], radii[0]}[:n]
	case n:
	default:
		return vec.Zero, nil, nil, badRequest(fmt.Sprintf("ожидается 1 или %d радиуса", n))
	}
	for _, r := range radii {
		if r <= 0 {
			return vec.Zero, nil, nil, badRequest("радиус должен быть положительным")
		}
		if err := cc.rs.edit.CheckRadius(r); err != nil {
			return vec.Zero, nil, nil, badRequest(err.Error())
		}
	}
	return pos, p, radii, nil
}

// nodes узлы линии или кривой: из запроса, иначе из выделения
func (cc *commandContext) nodes(curve bool) ([]vec.Vec3, error) {
	nodes := cc.req.Points
	if len(nodes) == 0 {
		d := cc.sess.Selector(cc.worldName()).Describe()
		if vs, ok := d["vertices"].([]vec.Vec3); ok && curve {
			nodes = vs
		} else {
			p1, ok1 := d["pos1"].(vec.Vec3)
			p2, ok2 := d["pos2"].(vec.Vec3)
			if ok1 && ok2 {
				nodes = []vec.Vec3{p1, p2}
			}
		}
	}
	if len(nodes) < 2 {
		return nil, badRequest("нужно не меньше двух точек")
	}
	if !curve && len(nodes) != 2 {
		return nil, badRequest("линия задаётся двумя точками")
	}
	return nodes, nil
}

func (cc *commandContext) biome() (world.BiomeType, error) {
	if strings.TrimSpace(cc.req.Biome) == "" {
		return 0, badRequest("не задан биом")
	}
	b, err := world.ParseBiome(cc.req.Biome)
	if err != nil {
		return 0, badRequest(err.Error())
	}
	return b, nil
}

// columnCount оценка числа колонок проекции области
func columnCount(r region.Region) int64 {
	lo, hi := r.MinimumPoint(), r.MaximumPoint()
	return int64(hi.X-lo.X+1) * int64(hi.Z-lo.Z+1)
}

// shapeCoords начало и масштаб координат формулы
func (cc *commandContext) shapeCoords(r region.Region) (vec.Vec3Float, vec.Vec3Float, error) {
	if strings.TrimSpace(cc.req.Expression) == "" {
		return vec.Vec3Float{}, vec.Vec3Float{}, badRequest("не задана формула")
	}
	one := vec.NewFloat(1, 1, 1)
	switch cc.req.Coords {
	case "raw":
		return vec.Vec3Float{}, one, nil
	case "offset":
		pos, err := cc.sess.PlacementPosition(cc.worldName())
		if err != nil {
			return vec.Vec3Float{}, vec.Vec3Float{}, err
		}
		return pos.ToFloat(), one, nil
	case "center":
		return r.Center(), one, nil
	case "", "normalized":
		zero := r.Center()
		unit := r.MaximumPoint().ToFloat().Sub(zero)
		if unit.X == 0 {
			unit.X = 1
		}
		if unit.Y == 0 {
			unit.Y = 1
		}
		if unit.Z == 0 {
			unit.Z = 1
		}
		return zero, unit, nil
	}
	return vec.Vec3Float{}, vec.Vec3Float{}, badRequest(fmt.Sprintf("неизвестная система координат %q", cc.req.Coords))
}

// editHandler оборачивает построитель команды в обработчик gin
func (rs *RestServer) editHandler(name string, build commandBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			renderError(c, badRequest("неверный формат запроса: "+err.Error()), nil)
			return
		}
		sess, found := rs.session(c)
		if !found {
			return
		}
		es := sess.CreateEditSession(rs.world, name)
		cmd, err := build(&commandContext{rs: rs, sess: sess, es: es, req: &req})
		if err != nil {
			renderError(c, err, nil)
			return
		}
		rs.execute(c, sess, es, cmd)
	}
}
