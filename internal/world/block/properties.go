package block

// Property битовые флаги свойств типа блока
type Property uint32

const (
	PropSolid       Property = 1 << iota // занимает весь объём
	PropLiquid                           // вода, лава
	PropNatural                          // часть ландшафта
	PropTranslucent                      // пропускает свет
	PropFlammable                        // горит
	PropPlant                            // растительность
	PropPassThrough                      // сквозь него можно пройти
	PropAttached                         // должен ставиться после опоры
	PropContainer                        // хранит расширенные атрибуты
)

func hasProperty(id BlockID, p Property) bool {
	t, ok := Get(id)
	return ok && t.Has(p)
}

// IsSolid сообщает, является ли блок твёрдым
func IsSolid(id BlockID) bool { return hasProperty(id, PropSolid) }

// IsLiquid сообщает, является ли блок жидкостью
func IsLiquid(id BlockID) bool { return hasProperty(id, PropLiquid) }

// IsNatural сообщает, относится ли блок к естественному ландшафту
func IsNatural(id BlockID) bool { return hasProperty(id, PropNatural) }

// IsTranslucent сообщает, пропускает ли блок свет
func IsTranslucent(id BlockID) bool { return hasProperty(id, PropTranslucent) }

// IsFlammable сообщает, может ли блок гореть
func IsFlammable(id BlockID) bool { return hasProperty(id, PropFlammable) }

// IsPlant сообщает, является ли блок растением
func IsPlant(id BlockID) bool { return hasProperty(id, PropPlant) }

// CanPassThrough сообщает, можно ли пройти сквозь блок
func CanPassThrough(id BlockID) bool { return hasProperty(id, PropPassThrough) }

// ShouldPlaceLast сообщает, нужно ли ставить блок после всех остальных:
// факелы, цветы и прочее держатся на соседях.
func ShouldPlaceLast(id BlockID) bool { return hasProperty(id, PropAttached) }

// IsWater и IsLava для команд работы с жидкостями
func IsWater(id BlockID) bool {
	return id == WaterBlockID || id == StationaryWaterBlockID
}

func IsLava(id BlockID) bool {
	return id == LavaBlockID || id == StationaryLavaBlockID
}
