package world

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/annel0/blockedit/internal/vec"
)

// BiomeType представляет тип биома колонки
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeMountains
	BiomeWater
	BiomeForest
	BiomeTaiga
	BiomeSwamp
	BiomeJungle
	BiomeSavanna
	BiomeTundra
	BiomeMushroom
)

// ErrUnknownBiome имя или номер биома не зарегистрированы
var ErrUnknownBiome = errors.New("неизвестный биом")

var biomeNames = map[BiomeType]string{
	BiomePlains:    "plains",
	BiomeDesert:    "desert",
	BiomeMountains: "mountains",
	BiomeWater:     "water",
	BiomeForest:    "forest",
	BiomeTaiga:     "taiga",
	BiomeSwamp:     "swamp",
	BiomeJungle:    "jungle",
	BiomeSavanna:   "savanna",
	BiomeTundra:    "tundra",
	BiomeMushroom:  "mushroom_island",
}

func (b BiomeType) String() string {
	if name, ok := biomeNames[b]; ok {
		return name
	}
	return fmt.Sprintf("<неизвестно #%d>", int(b))
}

// IsKnown проверяет, что биом зарегистрирован
func (b BiomeType) IsKnown() bool {
	_, ok := biomeNames[b]
	return ok
}

// Biomes возвращает все зарегистрированные биомы по возрастанию номера
func Biomes() []BiomeType {
	list := make([]BiomeType, 0, len(biomeNames))
	for b := range biomeNames {
		list = append(list, b)
	}
	slices.Sort(list)
	return list
}

// ParseBiome ищет биом по имени без учёта регистра
func ParseBiome(name string) (BiomeType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for b, n := range biomeNames {
		if n == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBiome, name)
}

// BiomeSetter приёмник записи биомов колонок
type BiomeSetter interface {
	SetBiome(v vec.Vec2, b BiomeType) (bool, error)
}

// BiomeStore постоянное хранилище переопределённых биомов
type BiomeStore interface {
	LoadBiomes() (map[vec.Vec2]BiomeType, error)
	SaveBiomes(biomes map[vec.Vec2]BiomeType) error
}
