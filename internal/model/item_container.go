package model

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrItemNotFound — предмет с таким id отсутствует в контейнере.
	ErrItemNotFound = errors.New("item not found")
	// ErrContainerNotFound — путь до контейнера не существует.
	ErrContainerNotFound = errors.New("container not found")
	// ErrNotAContainer — модуль на пути не является контейнером.
	ErrNotAContainer = errors.New("module is not a container")
)

// PathStep — один шаг пути: предмет и имя его модуля-контейнера.
type PathStep struct {
	Item   ItemID `json:"item"`
	Module string `json:"module"`
}

// ItemContainerPath — путь от верхнего списка (надетые предметы или инвентарь
// комнаты) до вложенного контейнера. Пустой путь означает сам верхний список.
type ItemContainerPath []PathStep

// ItemPath указывает на предмет внутри контейнера.
type ItemPath struct {
	Container ItemContainerPath `json:"container,omitempty"`
	ItemID    ItemID            `json:"itemId"`
}

// String formats the path as "i/a:storage/i/b".
func (p ItemPath) String() string {
	s := ""
	for _, step := range p.Container {
		s += fmt.Sprintf("%s:%s/", step.Item, step.Module)
	}
	return s + string(p.ItemID)
}

// Contains reports whether the container path passes through the item.
func (p ItemContainerPath) Contains(id ItemID) bool {
	return slices.ContainsFunc(p, func(s PathStep) bool { return s.Item == id })
}

// GetContainerItems возвращает содержимое контейнера по пути.
func GetContainerItems(items []*Item, path ItemContainerPath) ([]*Item, error) {
	current := items
	for _, step := range path {
		idx := indexOfItem(current, step.Item)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, step.Item)
		}
		c, ok := current[idx].modules[step.Module].(ContainerModule)
		if !ok {
			return nil, fmt.Errorf("%w: %s:%s", ErrNotAContainer, step.Item, step.Module)
		}
		current = c.Items()
	}
	return current, nil
}

// GetItem ищет предмет по пути; nil если не найден.
func GetItem(items []*Item, path ItemPath) *Item {
	container, err := GetContainerItems(items, path.Container)
	if err != nil {
		return nil
	}
	idx := indexOfItem(container, path.ItemID)
	if idx < 0 {
		return nil
	}
	return container[idx]
}

// FindItemPath ищет предмет по id во всём дереве (поиск в глубину, по порядку).
func FindItemPath(items []*Item, id ItemID) (ItemPath, bool) {
	var walk func(list []*Item, prefix ItemContainerPath) (ItemPath, bool)
	walk = func(list []*Item, prefix ItemContainerPath) (ItemPath, bool) {
		for _, item := range list {
			if item.id == id {
				return ItemPath{Container: slices.Clone(prefix), ItemID: id}, true
			}
			for _, c := range item.ContainerModules() {
				if p, ok := walk(c.Module.Items(), append(prefix, PathStep{Item: item.id, Module: c.Name})); ok {
					return p, true
				}
			}
		}
		return ItemPath{}, false
	}
	return walk(items, nil)
}

// UpdateContainer заменяет содержимое контейнера результатом fn, пересобирая
// только предметы на пути (copy-on-write). Исходный список не изменяется.
func UpdateContainer(items []*Item, path ItemContainerPath, fn func([]*Item) ([]*Item, error)) ([]*Item, error) {
	if len(path) == 0 {
		return fn(items)
	}
	step := path[0]
	idx := indexOfItem(items, step.Item)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, step.Item)
	}
	owner := items[idx]
	c, ok := owner.modules[step.Module].(ContainerModule)
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotAContainer, step.Item, step.Module)
	}
	inner, err := UpdateContainer(c.Items(), path[1:], fn)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(items)
	out[idx] = owner.WithModule(step.Module, c.WithItems(inner))
	return out, nil
}

// AddItem добавляет предмет в контейнер. Если insertBefore задан, предмет
// вставляется перед ним, иначе в конец.
func AddItem(items []*Item, container ItemContainerPath, item *Item, insertBefore ItemID) ([]*Item, error) {
	return UpdateContainer(items, container, func(list []*Item) ([]*Item, error) {
		pos := len(list)
		if insertBefore != "" {
			pos = indexOfItem(list, insertBefore)
			if pos < 0 {
				return nil, fmt.Errorf("%w: %s", ErrItemNotFound, insertBefore)
			}
		}
		return slices.Insert(slices.Clone(list), pos, item), nil
	})
}

// RemoveItem удаляет предмет и возвращает новый список вместе с удалённым предметом.
func RemoveItem(items []*Item, path ItemPath) ([]*Item, *Item, error) {
	var removed *Item
	out, err := UpdateContainer(items, path.Container, func(list []*Item) ([]*Item, error) {
		idx := indexOfItem(list, path.ItemID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, path.ItemID)
		}
		removed = list[idx]
		return slices.Delete(slices.Clone(list), idx, idx+1), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, removed, nil
}

// MoveItem сдвигает предмет внутри его контейнера на shift позиций.
// Сдвиг за границы контейнера ограничивается, а не является ошибкой.
func MoveItem(items []*Item, path ItemPath, shift int) ([]*Item, error) {
	return UpdateContainer(items, path.Container, func(list []*Item) ([]*Item, error) {
		idx := indexOfItem(list, path.ItemID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, path.ItemID)
		}
		target := clampInt(idx+shift, 0, len(list)-1)
		if target == idx {
			return list, nil
		}
		item := list[idx]
		out := slices.Delete(slices.Clone(list), idx, idx+1)
		return slices.Insert(out, target, item), nil
	})
}

// UpdateItem заменяет предмет результатом fn.
func UpdateItem(items []*Item, path ItemPath, fn func(*Item) (*Item, error)) ([]*Item, error) {
	return UpdateContainer(items, path.Container, func(list []*Item) ([]*Item, error) {
		idx := indexOfItem(list, path.ItemID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, path.ItemID)
		}
		updated, err := fn(list[idx])
		if err != nil {
			return nil, err
		}
		out := slices.Clone(list)
		out[idx] = updated
		return out, nil
	})
}

// CountItems returns the number of items in the tree, nested ones included.
func CountItems(items []*Item) int {
	n := 0
	for _, item := range items {
		n++
		for _, c := range item.ContainerModules() {
			n += CountItems(c.Module.Items())
		}
	}
	return n
}

func indexOfItem(items []*Item, id ItemID) int {
	return slices.IndexFunc(items, func(i *Item) bool { return i.id == id })
}
