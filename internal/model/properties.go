package model

import "maps"

// AssetPropertiesIndividualResult — эффективные свойства одного предмета:
// свойства ассета плюс выбранные варианты typed модулей плюс lockSlot
// (occupied/locked).
type AssetPropertiesIndividualResult struct {
	PoseLimits   []*PoseLimits
	Effects      Effects
	Attributes   map[string]struct{}
	Requirements []string
	Hides        map[string]struct{}

	OccupySlots map[string]float64
	BlockSlots  map[string]struct{}
	CoverSlots  map[string]struct{}

	BlockAddRemove     bool
	BlockSelfAddRemove bool
	BlockModules       map[string]struct{}
	BlockSelfModules   map[string]struct{}
}

func newIndividualResult() AssetPropertiesIndividualResult {
	return AssetPropertiesIndividualResult{
		Attributes:       map[string]struct{}{},
		Hides:            map[string]struct{}{},
		OccupySlots:      map[string]float64{},
		BlockSlots:       map[string]struct{}{},
		CoverSlots:       map[string]struct{}{},
		BlockModules:     map[string]struct{}{},
		BlockSelfModules: map[string]struct{}{},
	}
}

func (r *AssetPropertiesIndividualResult) add(p *AssetProperties) {
	if p.PoseLimits != nil {
		r.PoseLimits = append(r.PoseLimits, p.PoseLimits)
	}
	r.Effects = r.Effects.Merge(p.Effects)
	addAll(r.Attributes, p.Attributes)
	r.Requirements = append(r.Requirements, p.Requirements...)
	addAll(r.Hides, p.Hides)
	for slot, amount := range p.OccupySlots {
		r.OccupySlots[slot] += amount
	}
	addAll(r.BlockSlots, p.BlockSlots)
	addAll(r.CoverSlots, p.CoverSlots)
	r.BlockAddRemove = r.BlockAddRemove || p.BlockAddRemove
	r.BlockSelfAddRemove = r.BlockSelfAddRemove || p.BlockSelfAddRemove
	addAll(r.BlockModules, p.BlockModules)
	addAll(r.BlockSelfModules, p.BlockSelfModules)
}

// Occupies reports whether the item declares the slot, even with zero amount.
func (r AssetPropertiesIndividualResult) Occupies(slot string) bool {
	_, ok := r.OccupySlots[slot]
	return ok
}

// ItemProperties собирает эффективные свойства предмета.
func ItemProperties(item *Item) AssetPropertiesIndividualResult {
	r := newIndividualResult()
	r.add(&item.asset.Properties)
	for _, name := range item.asset.ModuleNames() {
		switch m := item.modules[name].(type) {
		case *TypedModule:
			r.add(&m.variant.Properties)
		case *LockSlotModule:
			if m.Lock() != nil {
				r.add(&m.config.OccupiedProperties)
			}
			if m.locked {
				r.add(&m.config.LockedProperties)
			}
		case *StorageModule:
		case nil:
		default:
			panic("model: unknown module state")
		}
	}
	return r
}

// AssetPropertiesResult — свойства, агрегированные по всем надетым предметам.
type AssetPropertiesResult struct {
	Effects    Effects
	Attributes map[string]struct{} // атрибуты, видимые сверху (после hides)
	Limits     *AppearanceLimitTree

	// Individual хранит свойства каждого надетого предмета в порядке надевания.
	Individual []AssetPropertiesIndividualResult
}

// HasAttribute reports whether the attribute is visible on the whole appearance.
func (r *AssetPropertiesResult) HasAttribute(attr string) bool {
	_, ok := r.Attributes[attr]
	return ok
}

// ComputeAppearanceProperties агрегирует свойства надетых предметов
// (индекс 0 — самый нижний слой).
func ComputeAppearanceProperties(items []*Item) *AssetPropertiesResult {
	res := &AssetPropertiesResult{
		Attributes: map[string]struct{}{},
		Limits:     NewAppearanceLimitTree(),
		Individual: make([]AssetPropertiesIndividualResult, 0, len(items)),
	}
	for _, item := range items {
		props := ItemProperties(item)
		res.Individual = append(res.Individual, props)
		res.Effects = res.Effects.Merge(props.Effects)
		for attr := range props.Hides {
			delete(res.Attributes, attr)
		}
		maps.Copy(res.Attributes, props.Attributes)
		for _, limits := range props.PoseLimits {
			res.Limits.Merge(limits)
		}
	}
	return res
}

// SlotUsage суммирует occupySlots по надетым предметам.
func (r *AssetPropertiesResult) SlotUsage() map[string]float64 {
	usage := make(map[string]float64)
	for _, p := range r.Individual {
		for slot, amount := range p.OccupySlots {
			usage[slot] += amount
		}
	}
	return usage
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		set[v] = struct{}{}
	}
}
