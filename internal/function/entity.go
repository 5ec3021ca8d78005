package function

import (
	"github.com/annel0/blockedit/internal/world"
)

// RemovalFlags какие сущности удалять
type RemovalFlags struct {
	Hostile     bool `json:"hostile"`
	Passive     bool `json:"passive"`
	Ambient     bool `json:"ambient"`
	Projectiles bool `json:"projectiles"`
	Items       bool `json:"items"`
	Golems      bool `json:"golems"`
	NPCs        bool `json:"npcs"`
	Paintings   bool `json:"paintings"`
	Tamed       bool `json:"tamed"` // удалять и приручённых
	Named       bool `json:"named"` // удалять и именованных
}

// ButcherFlags набор по умолчанию для команды butcher: только враждебные
func ButcherFlags() RemovalFlags { return RemovalFlags{Hostile: true} }

// EntityRemover удаляет сущности по флагам. Игроки не удаляются никогда.
type EntityRemover struct {
	World    world.World
	Registry world.EntityRegistry
	Flags    RemovalFlags
	affected int
}

// NewEntityRemover создаёт функцию удаления сущностей
func NewEntityRemover(w world.World, reg world.EntityRegistry, flags RemovalFlags) *EntityRemover {
	return &EntityRemover{World: w, Registry: reg, Flags: flags}
}

func (r *EntityRemover) kind(e world.Entity) world.EntityKind {
	if e.Kind != world.EntityKindUnknown || r.Registry == nil {
		return e.Kind
	}
	k, _ := r.Registry.Resolve(e.TypeName)
	return k
}

// Matches проверяет, подлежит ли сущность удалению
func (r *EntityRemover) Matches(e world.Entity) bool {
	if e.Tamed && !r.Flags.Tamed {
		return false
	}
	if e.Named && !r.Flags.Named {
		return false
	}
	switch r.kind(e) {
	case world.EntityKindHostile:
		return r.Flags.Hostile
	case world.EntityKindPassive:
		return r.Flags.Passive
	case world.EntityKindAmbient:
		return r.Flags.Ambient
	case world.EntityKindProjectile:
		return r.Flags.Projectiles
	case world.EntityKindItem:
		return r.Flags.Items
	case world.EntityKindGolem:
		return r.Flags.Golems
	case world.EntityKindNPC:
		return r.Flags.NPCs
	case world.EntityKindPainting:
		return r.Flags.Paintings
	}
	return false
}

func (r *EntityRemover) ApplyEntity(e world.Entity) (bool, error) {
	if !r.Matches(e) {
		return false, nil
	}
	if err := r.World.RemoveEntity(e.ID); err != nil {
		return false, err
	}
	r.affected++
	return true, nil
}

func (r *EntityRemover) Affected() int { return r.affected }
