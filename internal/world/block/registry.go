package block

import (
	"sort"
	"strings"
	"sync"
)

// BlockID представляет идентификатор типа блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID             BlockID = iota // 0
	StoneBlockID                          // 1
	GrassBlockID                          // 2
	DirtBlockID                           // 3
	CobblestoneBlockID                    // 4
	SandBlockID                           // 5
	GravelBlockID                         // 6
	BedrockBlockID                        // 7
	WaterBlockID                          // 8
	StationaryWaterBlockID                // 9
	LavaBlockID                           // 10
	StationaryLavaBlockID                 // 11
	IceBlockID                            // 12
	SnowBlockID                           // 13 - снежный слой
	SnowBlockFullID                       // 14
	ClayBlockID                           // 15
	SandstoneBlockID                      // 16
	GlassBlockID                          // 17
	MyceliumBlockID                       // 18

	// Растительность (начиная с 100)
	LogBlockID       BlockID = 100
	LeavesBlockID    BlockID = 101
	FlowerBlockID    BlockID = 102
	RoseBlockID      BlockID = 103
	TallGrassBlockID BlockID = 104
	CactusBlockID    BlockID = 105
	PumpkinBlockID   BlockID = 106
	DeadBushBlockID  BlockID = 107
	SaplingBlockID   BlockID = 108
	MushroomBlockID  BlockID = 109
	VineBlockID      BlockID = 110
	SugarCaneBlockID BlockID = 111

	// Прикрепляемые и интерактивные блоки (начиная с 200)
	TorchBlockID  BlockID = 200
	FireBlockID   BlockID = 201
	ChestBlockID  BlockID = 202
	DoorBlockID   BlockID = 203
	SignBlockID   BlockID = 204
	LadderBlockID BlockID = 205
)

// Type описывает зарегистрированный тип блока
type Type struct {
	ID         BlockID
	Name       string
	Properties Property
}

// Has проверяет наличие свойства у типа
func (t Type) Has(p Property) bool {
	return t.Properties&p != 0
}

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]Type)
	byName     = make(map[string]BlockID)
)

// Register добавляет тип блока в регистр
func Register(t Type) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[t.ID] = t
	byName[strings.ToLower(t.Name)] = t.ID
}

// Get возвращает тип для указанного ID
func Get(id BlockID) (Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, exists := registry[id]
	return t, exists
}

// Lookup ищет тип по имени без учёта регистра
func Lookup(name string) (Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Type{}, false
	}
	return registry[id], true
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// Names возвращает отсортированный список имён всех типов
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name возвращает имя типа или числовой ID, если тип не зарегистрирован
func (id BlockID) Name() string {
	if t, ok := Get(id); ok {
		return t.Name
	}
	return "unknown"
}

func init() {
	defaults := []Type{
		{AirBlockID, "air", PropPassThrough | PropTranslucent},
		{StoneBlockID, "stone", PropSolid | PropNatural},
		{GrassBlockID, "grass", PropSolid | PropNatural},
		{DirtBlockID, "dirt", PropSolid | PropNatural},
		{CobblestoneBlockID, "cobblestone", PropSolid},
		{SandBlockID, "sand", PropSolid | PropNatural},
		{GravelBlockID, "gravel", PropSolid | PropNatural},
		{BedrockBlockID, "bedrock", PropSolid | PropNatural},
		{WaterBlockID, "water", PropLiquid | PropTranslucent | PropPassThrough},
		{StationaryWaterBlockID, "stationary_water", PropLiquid | PropTranslucent | PropPassThrough},
		{LavaBlockID, "lava", PropLiquid | PropPassThrough},
		{StationaryLavaBlockID, "stationary_lava", PropLiquid | PropPassThrough},
		{IceBlockID, "ice", PropSolid | PropTranslucent | PropNatural},
		{SnowBlockID, "snow", PropPassThrough | PropTranslucent | PropAttached},
		{SnowBlockFullID, "snow_block", PropSolid | PropNatural},
		{ClayBlockID, "clay", PropSolid | PropNatural},
		{SandstoneBlockID, "sandstone", PropSolid | PropNatural},
		{GlassBlockID, "glass", PropSolid | PropTranslucent},
		{MyceliumBlockID, "mycelium", PropSolid | PropNatural},
		{LogBlockID, "log", PropSolid | PropFlammable},
		{LeavesBlockID, "leaves", PropSolid | PropTranslucent | PropFlammable},
		{FlowerBlockID, "flower", PropPlant | PropPassThrough | PropAttached},
		{RoseBlockID, "rose", PropPlant | PropPassThrough | PropAttached},
		{TallGrassBlockID, "tall_grass", PropPlant | PropPassThrough | PropAttached | PropFlammable},
		{CactusBlockID, "cactus", PropPlant | PropAttached},
		{PumpkinBlockID, "pumpkin", PropSolid},
		{DeadBushBlockID, "dead_bush", PropPlant | PropPassThrough | PropAttached},
		{SaplingBlockID, "sapling", PropPlant | PropPassThrough | PropAttached},
		{MushroomBlockID, "mushroom", PropPlant | PropPassThrough | PropAttached},
		{VineBlockID, "vine", PropPlant | PropPassThrough | PropAttached},
		{SugarCaneBlockID, "sugar_cane", PropPlant | PropPassThrough | PropAttached},
		{TorchBlockID, "torch", PropPassThrough | PropAttached},
		{FireBlockID, "fire", PropPassThrough | PropAttached},
		{ChestBlockID, "chest", PropSolid | PropContainer},
		{DoorBlockID, "door", PropAttached},
		{SignBlockID, "sign", PropPassThrough | PropAttached | PropContainer},
		{LadderBlockID, "ladder", PropPassThrough | PropAttached},
	}
	for _, t := range defaults {
		Register(t)
	}
}
