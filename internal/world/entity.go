package world

import (
	"strings"

	"github.com/annel0/blockedit/internal/vec"
)

// EntityKind категория сущности для функций удаления
type EntityKind uint16

const (
	EntityKindUnknown    EntityKind = 0
	EntityKindPlayer     EntityKind = 1
	EntityKindItem       EntityKind = 100
	EntityKindProjectile EntityKind = 200
	EntityKindNPC        EntityKind = 300
	EntityKindPassive    EntityKind = 301 // Животное
	EntityKindHostile    EntityKind = 302 // Монстр
	EntityKindAmbient    EntityKind = 303 // Летучие мыши и т.п.
	EntityKindGolem      EntityKind = 304
	EntityKindPainting   EntityKind = 400
)

// Entity ссылка на сущность мира
type Entity struct {
	ID       uint64        `json:"id"`
	TypeName string        `json:"type"`
	Kind     EntityKind    `json:"kind"`
	Position vec.Vec3Float `json:"position"`
	Tamed    bool          `json:"tamed,omitempty"`
	Named    bool          `json:"named,omitempty"`
}

// BlockPosition координата блока, в котором стоит сущность
func (e Entity) BlockPosition() vec.Vec3 {
	return e.Position.Floor()
}

// EntityRegistry порт разрешения имён типов сущностей
type EntityRegistry interface {
	Resolve(typeName string) (EntityKind, bool)
}

// DefaultEntityRegistry таблица известных типов
type DefaultEntityRegistry struct {
	kinds map[string]EntityKind
}

// NewDefaultEntityRegistry создаёт регистр со стандартными типами
func NewDefaultEntityRegistry() *DefaultEntityRegistry {
	return &DefaultEntityRegistry{kinds: map[string]EntityKind{
		"player":     EntityKindPlayer,
		"item":       EntityKindItem,
		"arrow":      EntityKindProjectile,
		"fireball":   EntityKindProjectile,
		"villager":   EntityKindNPC,
		"cow":        EntityKindPassive,
		"pig":        EntityKindPassive,
		"sheep":      EntityKindPassive,
		"wolf":       EntityKindPassive,
		"zombie":     EntityKindHostile,
		"skeleton":   EntityKindHostile,
		"creeper":    EntityKindHostile,
		"spider":     EntityKindHostile,
		"bat":        EntityKindAmbient,
		"iron_golem": EntityKindGolem,
		"snow_golem": EntityKindGolem,
		"painting":   EntityKindPainting,
	}}
}

// Resolve возвращает категорию по имени типа
func (r *DefaultEntityRegistry) Resolve(typeName string) (EntityKind, bool) {
	k, ok := r.kinds[strings.ToLower(typeName)]
	return k, ok
}

// Register добавляет тип
func (r *DefaultEntityRegistry) Register(typeName string, kind EntityKind) {
	r.kinds[strings.ToLower(typeName)] = kind
}
