package entity

import (
	"bytes"
	"sort"
)

// EntitySet is the data structure for a set of entities
type EntitySet map[*BaseEntity]struct{}

// Add adds an entity to the EntitySet
func (es EntitySet) Add(entity *BaseEntity) {
	es[entity] = struct{}{}
}

// Del deletes an entity from the EntitySet
func (es EntitySet) Del(entity *BaseEntity) {
	delete(es, entity)
}

// Contains returns if the entity is in the EntitySet
func (es EntitySet) Contains(entity *BaseEntity) bool {
	_, ok := es[entity]
	return ok
}

// Sorted returns the entities ordered by edict index
func (es EntitySet) Sorted() []*BaseEntity {
	list := make([]*BaseEntity, 0, len(es))
	for entity := range es {
		list = append(list, entity)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].index < list[j].index
	})
	return list
}

func (es EntitySet) String() string {
	b := bytes.Buffer{}
	b.WriteString("{")
	first := true
	for _, entity := range es.Sorted() {
		if !first {
			b.WriteString(", ")
		} else {
			first = false
		}
		b.WriteString(entity.String())
	}
	b.WriteString("}")
	return b.String()
}
