package model

import (
	"slices"
	"sort"
)

// Interval — замкнутый целочисленный интервал [min, max].
type Interval [2]int

// IntervalSet — отсортированный набор непересекающихся интервалов.
type IntervalSet []Interval

// NewIntervalSet нормализует интервалы: переворачивает [max, min], сортирует и склеивает
// пересекающиеся и соседние.
func NewIntervalSet(intervals ...Interval) IntervalSet {
	if len(intervals) == 0 {
		return IntervalSet{}
	}
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv[0] > iv[1] {
			iv[0], iv[1] = iv[1], iv[0]
		}
		sorted = append(sorted, iv)
	}
	sort.Slice(sorted, func(a, b int) bool { return sorted[a][0] < sorted[b][0] })

	out := IntervalSet{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv[0] <= last[1]+1 {
			last[1] = max(last[1], iv[1])
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Contains reports whether v lies in one of the intervals.
func (s IntervalSet) Contains(v int) bool {
	for _, iv := range s {
		if v >= iv[0] && v <= iv[1] {
			return true
		}
	}
	return false
}

// Clamp возвращает ближайшее к v допустимое значение и расстояние до него.
// При равном расстоянии побеждает меньшее значение.
func (s IntervalSet) Clamp(v int) (int, int) {
	best, bestDist := v, -1
	for _, iv := range s {
		if v >= iv[0] && v <= iv[1] {
			return v, 0
		}
		candidate := iv[0]
		if v > iv[1] {
			candidate = iv[1]
		}
		dist := abs(v - candidate)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	if bestDist < 0 {
		return v, 0
	}
	return best, bestDist
}

// Intersect возвращает объединение попарных пересечений двух наборов.
func (s IntervalSet) Intersect(o IntervalSet) IntervalSet {
	var out []Interval
	for _, a := range s {
		for _, b := range o {
			lo, hi := max(a[0], b[0]), min(a[1], b[1])
			if lo <= hi {
				out = append(out, Interval{lo, hi})
			}
		}
	}
	if len(out) == 0 {
		return IntervalSet{}
	}
	return NewIntervalSet(out...)
}

// Equal compares two normalized sets.
func (s IntervalSet) Equal(o IntervalSet) bool {
	return slices.Equal(s, o)
}

// PoseLimits — ограничения позы из определения ассета.
// Options — альтернативы: должна выполняться хотя бы одна.
type PoseLimits struct {
	Bones    map[string]IntervalSet
	Arms     *ArmLimits
	LeftArm  *ArmLimits
	RightArm *ArmLimits
	View     *CharacterView
	Options  []PoseLimits
}

// ArmLimits — допустимые значения для руки; nil поле не ограничивает.
type ArmLimits struct {
	Position []ArmPosition
	Rotation []ArmRotation
	Fingers  []ArmFingers
}

// limitNode — узел дерева ограничений. Узел никогда не изменяется после построения.
type limitNode struct {
	limits   map[string]IntervalSet
	children []*limitNode
}

func newLimitNode(def *PoseLimits) *limitNode {
	node := &limitNode{limits: make(map[string]IntervalSet)}
	if def == nil {
		return node
	}
	for bone, set := range def.Bones {
		node.limits[BoneKey(bone)] = set
	}
	if def.Arms != nil {
		node.addArm(flatLeftArm, def.Arms)
		node.addArm(flatRightArm, def.Arms)
	}
	if def.LeftArm != nil {
		node.addArm(flatLeftArm, def.LeftArm)
	}
	if def.RightArm != nil {
		node.addArm(flatRightArm, def.RightArm)
	}
	if def.View != nil {
		node.constrain(flatView, NewIntervalSet(Interval{int(*def.View), int(*def.View)}))
	}
	for i := range def.Options {
		node.children = append(node.children, newLimitNode(&def.Options[i]))
	}
	return node
}

func (n *limitNode) addArm(prefix string, arm *ArmLimits) {
	if arm.Position != nil {
		n.constrain(prefix+flatArmPosition, enumSet(arm.Position))
	}
	if arm.Rotation != nil {
		n.constrain(prefix+flatArmRotation, enumSet(arm.Rotation))
	}
	if arm.Fingers != nil {
		n.constrain(prefix+flatArmFingers, enumSet(arm.Fingers))
	}
}

// constrain добавляет ограничение, пересекая с уже существующим по тому же ключу.
func (n *limitNode) constrain(key string, set IntervalSet) {
	if cur, ok := n.limits[key]; ok {
		set = cur.Intersect(set)
	}
	n.limits[key] = set
}

func enumSet[T ~int](values []T) IntervalSet {
	intervals := make([]Interval, 0, len(values))
	for _, v := range values {
		intervals = append(intervals, Interval{int(v), int(v)})
	}
	return NewIntervalSet(intervals...)
}

// intersect возвращает пересечение двух узлов или nil, если пересечение пусто.
// Дети результата всегда сужены до лимитов самого узла.
func (n *limitNode) intersect(o *limitNode) *limitNode {
	limits := make(map[string]IntervalSet, len(n.limits)+len(o.limits))
	for k, v := range n.limits {
		limits[k] = v
	}
	for k, v := range o.limits {
		if cur, ok := limits[k]; ok {
			v = cur.Intersect(v)
		}
		limits[k] = v
	}
	for _, v := range limits {
		if len(v) == 0 {
			return nil
		}
	}

	result := &limitNode{limits: limits}

	var candidates []*limitNode
	switch {
	case len(n.children) > 0 && len(o.children) > 0:
		for _, a := range n.children {
			for _, b := range o.children {
				if c := a.intersect(b); c != nil {
					candidates = append(candidates, c)
				}
			}
		}
		if len(candidates) == 0 {
			return nil
		}
	case len(n.children) > 0:
		candidates = n.children
	case len(o.children) > 0:
		candidates = o.children
	default:
		return result
	}

	flat := &limitNode{limits: limits}
	for _, c := range candidates {
		narrowed := c.intersect(flat)
		if narrowed == nil {
			continue
		}
		narrowed.prune(limits)
		if len(narrowed.limits) == 0 && len(narrowed.children) == 0 {
			// Альтернатива без ограничений — весь уровень избыточен.
			result.children = nil
			return result
		}
		result.children = append(result.children, narrowed)
	}
	if len(result.children) == 0 {
		return nil
	}
	return result
}

// prune удаляет ключи, ограничение которых совпадает с родительским.
// Вызывается только на только что созданном узле.
func (n *limitNode) prune(parent map[string]IntervalSet) {
	for k, v := range n.limits {
		if p, ok := parent[k]; ok && p.Equal(v) {
			delete(n.limits, k)
		}
	}
}

func (n *limitNode) validate(pose FlatPose) bool {
	for k, set := range n.limits {
		if !set.Contains(pose[k]) {
			return false
		}
	}
	if len(n.children) == 0 {
		return true
	}
	for _, c := range n.children {
		if c.validate(pose) {
			return true
		}
	}
	return false
}

// force приводит позу к лимитам узла и выбирает ребёнка с минимальной суммарной
// дистанцией. При равенстве побеждает первый по порядку объявления.
func (n *limitNode) force(pose FlatPose) (FlatPose, int) {
	out := pose.clone()
	total := 0
	for k, set := range n.limits {
		v, d := set.Clamp(out[k])
		out[k] = v
		total += d
	}
	if len(n.children) == 0 {
		return out, total
	}

	var best FlatPose
	bestDist := -1
	for _, c := range n.children {
		candidate, dist := c.force(out)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best, total + bestDist
}

// AppearanceLimitTree — дерево интервальных ограничений позы, объединяющее
// pose limits всех надетых предметов.
//
// Дерево либо valid (root != nil), либо навсегда invalid: после пустого
// пересечения Merge больше никогда не восстанавливает валидность,
// а Validate/Force отказывают (fail closed).
type AppearanceLimitTree struct {
	root *limitNode
}

// NewAppearanceLimitTree создаёт дерево без ограничений.
func NewAppearanceLimitTree() *AppearanceLimitTree {
	return &AppearanceLimitTree{root: &limitNode{limits: map[string]IntervalSet{}}}
}

// Valid reports whether at least one pose satisfies the tree.
func (t *AppearanceLimitTree) Valid() bool {
	return t.root != nil
}

// Merge пересекает дерево с ограничениями ассета.
//
// Returns:
//   - bool: false если пересечение пусто (дерево стало invalid навсегда)
func (t *AppearanceLimitTree) Merge(limits *PoseLimits) bool {
	if t.root == nil {
		return false
	}
	if limits == nil {
		return true
	}
	t.root = t.root.intersect(newLimitNode(limits))
	return t.root != nil
}

// Validate возвращает true, если поза удовлетворяет дереву.
func (t *AppearanceLimitTree) Validate(pose Pose) bool {
	if t.root == nil {
		return false
	}
	return t.root.validate(pose.Flatten())
}

// ForcedPose — результат Force.
type ForcedPose struct {
	Pose    Pose
	Changed bool
}

// Force приводит позу к ближайшей допустимой.
//
// Returns:
//   - ForcedPose: приведённая поза и флаг изменения
//   - bool: false если дерево invalid (поза возвращается без изменений)
func (t *AppearanceLimitTree) Force(pose Pose) (ForcedPose, bool) {
	if t.root == nil {
		return ForcedPose{Pose: pose}, false
	}
	forced, dist := t.root.force(pose.Flatten())
	if dist == 0 {
		return ForcedPose{Pose: pose}, true
	}
	return ForcedPose{Pose: forced.Unflatten(pose), Changed: true}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
