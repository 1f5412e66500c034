package model

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// PoseBundle — сериализованная поза. View заполняется только у requestedPose,
// эффективный view хранится в CharacterAppearanceBundle.View.
type PoseBundle struct {
	Bones    map[string]int `json:"bones,omitempty" cbor:"bones,omitempty"`
	LeftArm  ArmPose        `json:"leftArm" cbor:"leftArm"`
	RightArm ArmPose        `json:"rightArm" cbor:"rightArm"`
	View     *CharacterView `json:"view,omitempty" cbor:"view,omitempty"`
}

func poseToBundle(p Pose) PoseBundle {
	return PoseBundle{Bones: p.Clone().Bones, LeftArm: p.LeftArm, RightArm: p.RightArm}
}

func (b PoseBundle) toPose(view CharacterView) Pose {
	if b.View != nil {
		view = *b.View
	}
	return Pose{Bones: b.Bones, LeftArm: b.LeftArm, RightArm: b.RightArm, View: view}.Clone()
}

// CharacterAppearanceBundle — сериализованная внешность персонажа.
type CharacterAppearanceBundle struct {
	Items         []ItemBundle  `json:"items" cbor:"items"`
	Pose          PoseBundle    `json:"pose" cbor:"pose"`
	RequestedPose *PoseBundle   `json:"requestedPose,omitempty" cbor:"requestedPose,omitempty"`
	View          CharacterView `json:"view" cbor:"view"`
}

// CharacterState — immutable снимок внешности персонажа.
// Любое изменение создаёт новый экземпляр через ProduceWith*; старый остаётся
// валидным. Результат Validate вычисляется один раз на экземпляр.
type CharacterState struct {
	assets        *AssetManager
	id            CharacterID
	items         []*Item
	pose          Pose // эффективная поза (после Force)
	requestedPose Pose

	propsOnce sync.Once
	props     *AssetPropertiesResult

	validateOnce sync.Once
	validation   AppearanceValidationResult
}

// NewCharacterState создаёт персонажа без предметов в позе по умолчанию.
func NewCharacterState(assets *AssetManager, id CharacterID) *CharacterState {
	pose := assets.DefaultPose()
	return &CharacterState{assets: assets, id: id, pose: pose, requestedPose: pose}
}

// ID returns the character id.
func (s *CharacterState) ID() CharacterID { return s.id }

// Assets returns the catalog the state was built against.
func (s *CharacterState) Assets() *AssetManager { return s.assets }

// Items returns worn items, index 0 is the innermost layer. The slice must not be modified.
func (s *CharacterState) Items() []*Item { return s.items }

// Pose returns the effective pose.
func (s *CharacterState) Pose() Pose { return s.pose.Clone() }

// RequestedPose returns the pose before limits were applied.
func (s *CharacterState) RequestedPose() Pose { return s.requestedPose.Clone() }

// View returns the character view.
func (s *CharacterState) View() CharacterView { return s.pose.View }

// Properties возвращает агрегированные свойства надетых предметов (кешируется).
func (s *CharacterState) Properties() *AssetPropertiesResult {
	s.propsOnce.Do(func() {
		s.props = ComputeAppearanceProperties(s.items)
	})
	return s.props
}

// Effects returns the merged effects of worn items.
func (s *CharacterState) Effects() Effects { return s.Properties().Effects }

// ProduceWithItems возвращает состояние с новым набором предметов.
// Запрошенная поза повторно приводится к лимитам нового набора.
func (s *CharacterState) ProduceWithItems(items []*Item) *CharacterState {
	next := &CharacterState{
		assets:        s.assets,
		id:            s.id,
		items:         items,
		requestedPose: s.requestedPose,
	}
	next.pose = next.forcePose(s.requestedPose)
	return next
}

// ProduceWithPose возвращает состояние с новой запрошенной позой.
// Эффективная поза — ближайшая допустимая.
//
// Returns:
//   - *CharacterState: новое состояние
//   - bool: true если поза была изменена лимитами
func (s *CharacterState) ProduceWithPose(pose Pose) (*CharacterState, bool) {
	requested := s.assets.NormalizePose(pose)
	next := &CharacterState{
		assets:        s.assets,
		id:            s.id,
		items:         s.items,
		requestedPose: requested,
		props:         s.Properties(),
	}
	next.propsOnce.Do(func() {})
	next.pose = next.forcePose(requested)
	return next, !next.pose.Equal(requested)
}

// ProduceWithView возвращает состояние с другим view.
func (s *CharacterState) ProduceWithView(view CharacterView) *CharacterState {
	requested := s.requestedPose.Clone()
	requested.View = view
	next, _ := s.ProduceWithPose(requested)
	return next
}

func (s *CharacterState) forcePose(requested Pose) Pose {
	forced, ok := s.Properties().Limits.Force(requested)
	if !ok {
		return requested.Clone()
	}
	return forced.Pose
}

// Validate проверяет состояние. Результат кешируется на экземпляр.
func (s *CharacterState) Validate() AppearanceValidationResult {
	s.validateOnce.Do(func() {
		s.validation = validateWorn(s.assets, s.items, s.pose, s.Properties(), wornCheck{bodypartsComplete: true, pose: true})
	})
	return s.validation
}

// ExportToBundle сериализует состояние. Запрошенная поза экспортируется только
// если отличается от эффективной.
func (s *CharacterState) ExportToBundle() CharacterAppearanceBundle {
	b := CharacterAppearanceBundle{
		Items: make([]ItemBundle, 0, len(s.items)),
		Pose:  poseToBundle(s.pose),
		View:  s.pose.View,
	}
	for _, item := range s.items {
		b.Items = append(b.Items, item.ExportToBundle())
	}
	if !s.requestedPose.Equal(s.pose) {
		rp := poseToBundle(s.requestedPose)
		view := s.requestedPose.View
		rp.View = &view
		b.RequestedPose = &rp
	}
	return b
}

// LoadCharacterStateFromBundle восстанавливает персонажа из bundle.
// Загрузка permissive: неизвестные ассеты и предметы, нарушающие правила,
// отбрасываются с warning; отсутствующие обязательные части тела добавляются.
// Результат всегда валиден — иначе это ошибка в коде, и функция паникует.
func LoadCharacterStateFromBundle(assets *AssetManager, id CharacterID, bundle *CharacterAppearanceBundle, logger *slog.Logger) *CharacterState {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("character", id)

	var loaded []*Item
	view := CharacterViewFront
	var requested Pose
	if bundle != nil {
		loaded = assets.loadItems(bundle.Items, logger)
		view = bundle.View
		if bundle.RequestedPose != nil {
			requested = bundle.RequestedPose.toPose(view)
		} else {
			requested = bundle.Pose.toPose(view)
		}
	}
	requested = assets.NormalizePose(requested)

	candidates := sortBodypartsFirst(assets, loaded)
	candidates = addMissingBodyparts(assets, candidates, logger)

	items := make([]*Item, 0, len(candidates))
	for _, item := range candidates {
		next := append(slices.Clone(items), item)
		r := validateWorn(assets, next, Pose{}, ComputeAppearanceProperties(next), wornCheck{})
		if !r.Success() {
			logger.Warn("dropping invalid item on load", "item", item.id, "asset", item.asset.ID, "problem", r.String())
			continue
		}
		items = next
	}

	state := (&CharacterState{assets: assets, id: id, requestedPose: requested}).ProduceWithItems(items)
	if r := state.Validate(); !r.Success() {
		panic(fmt.Sprintf("model: character %s invalid after load: %s", id, r))
	}
	return state
}

// sortBodypartsFirst переставляет части тела в начало в порядке определения,
// сохраняя относительный порядок остальных предметов.
func sortBodypartsFirst(assets *AssetManager, items []*Item) []*Item {
	var bodyparts, rest []*Item
	for _, item := range items {
		if item.asset.IsBodypart() {
			bodyparts = append(bodyparts, item)
		} else {
			rest = append(rest, item)
		}
	}
	slices.SortStableFunc(bodyparts, func(a, b *Item) int {
		return assets.BodypartIndex(a.asset.Bodypart) - assets.BodypartIndex(b.asset.Bodypart)
	})
	return append(bodyparts, rest...)
}

// addMissingBodyparts добавляет первую подходящую часть тела из каталога для
// каждого обязательного bodypart, которого нет среди предметов.
func addMissingBodyparts(assets *AssetManager, items []*Item, logger *slog.Logger) []*Item {
	present := make(map[string]bool)
	for _, item := range items {
		if item.asset.IsBodypart() {
			present[item.asset.Bodypart] = true
		}
	}
	out := slices.Clone(items)
	for _, bp := range assets.bodyparts {
		if !bp.Required || present[bp.Name] {
			continue
		}
		asset := assets.defaultBodypartAsset(bp.Name)
		item := assets.CreateItem(NewItemID(), asset, nil, logger)
		logger.Warn("adding missing bodypart", "bodypart", bp.Name, "asset", asset.ID, "item", item.id)
		out = append(out, item)
	}
	return sortBodypartsFirst(assets, out)
}

// NewItemID генерирует серверный id предмета.
func NewItemID() ItemID {
	return ItemID("i/" + uuid.NewString())
}
