package world

import (
	"github.com/annel0/blockedit/internal/util"
	"github.com/annel0/blockedit/internal/vec"
	"github.com/annel0/blockedit/internal/world/block"
)

// Константы генерации
const (
	SeaLevel      = 62
	BaseHeight    = 56
	HeightAmp     = 32
	DesertStart   = 0.62 // Выше - пустыня
	MountainStart = 0.75 // Выше по высоте - горы без травы
)

// Generator детерминированно генерирует ландшафт по колонкам
type Generator struct {
	Seed       int64
	NoiseScale float64 // Масштаб шума высоты
	BiomeScale float64 // Масштаб шума биомов

	height util.NoiseGenerator
	biome  util.NoiseGenerator
}

// NewGenerator создаёт новый генератор мира
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:       seed,
		NoiseScale: 0.02,
		BiomeScale: 0.005,
		height:     util.NewPerlinNoise(seed),
		biome:      util.NewPerlinNoise(seed + 7919),
	}
}

// SurfaceHeight возвращает высоту верхнего твердого блока колонки
func (g *Generator) SurfaceHeight(x, z int) int {
	n := g.height.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	return BaseHeight + int(n*HeightAmp)
}

// Biome определяет биом колонки
func (g *Generator) Biome(x, z int) BiomeType {
	h := g.SurfaceHeight(x, z)
	if h < SeaLevel {
		return BiomeWater
	}
	if float64(h-BaseHeight)/HeightAmp > MountainStart {
		return BiomeMountains
	}
	if g.biome.Noise2D(float64(x)*g.BiomeScale, float64(z)*g.BiomeScale) > DesertStart {
		return BiomeDesert
	}
	return BiomePlains
}

// BlockAt возвращает сгенерированный блок в точке
func (g *Generator) BlockAt(p vec.Vec3) block.Value {
	if p.Y == DefaultMinY {
		return block.Of(block.BedrockBlockID)
	}
	h := g.SurfaceHeight(p.X, p.Z)
	biome := g.Biome(p.X, p.Z)

	switch {
	case p.Y > h:
		if p.Y <= SeaLevel {
			return block.Of(block.StationaryWaterBlockID)
		}
		return block.Air
	case p.Y == h:
		switch biome {
		case BiomeDesert, BiomeWater:
			return block.Of(block.SandBlockID)
		case BiomeMountains:
			return block.Of(block.StoneBlockID)
		default:
			return block.Of(block.GrassBlockID)
		}
	case p.Y > h-4:
		if biome == BiomeDesert || biome == BiomeWater {
			return block.Of(block.SandBlockID)
		}
		if biome == BiomeMountains {
			return block.Of(block.StoneBlockID)
		}
		return block.Of(block.DirtBlockID)
	default:
		return block.Of(block.StoneBlockID)
	}
}

// GenerateChunk заполняет секцию по её координатам
func (g *Generator) GenerateChunk(coords vec.Vec3) *Chunk {
	c := NewChunk(coords)
	origin := c.Origin()
	for i := 0; i < chunkVolume; i++ {
		local := LocalFromIndex(i)
		p := origin.Add(local)
		if p.Y < DefaultMinY || p.Y > DefaultMaxY {
			continue
		}
		v := g.BlockAt(p)
		c.IDs[i] = v.ID
		c.Data[i] = v.Data
	}
	return c
}
