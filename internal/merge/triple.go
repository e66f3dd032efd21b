// Package merge performs a three-way structural merge of two workbooks.
//
// The result of a merge starts as a clone of the target workbook. Elements
// found only in the source are copied into it; elements found in both
// workbooks that differ are reported as conflicts for the caller to resolve
// by editing the result. The engine never resolves a conflict itself.
package merge

import "github.com/lherron/wbmerge/internal/workbook"

// Triple holds the source, target and result instances of one logical
// element. Any slot may be empty (the zero value of T).
type Triple[T comparable] struct {
	source T
	target T
	result T
}

// NewTriple builds a triple from its three slots.
func NewTriple[T comparable](source, target, result T) Triple[T] {
	return Triple[T]{source: source, target: target, result: result}
}

// Source returns the element of the source workbook. It must not be modified.
func (t Triple[T]) Source() T { return t.source }

// Target returns the element of the target workbook. It must not be modified.
func (t Triple[T]) Target() T { return t.target }

// Result returns the element of the result workbook. Conflict resolutions
// are applied to it.
func (t Triple[T]) Result() T { return t.result }

func (t Triple[T]) HasSource() bool {
	var zero T
	return t.source != zero
}

func (t Triple[T]) HasTarget() bool {
	var zero T
	return t.target != zero
}

func (t Triple[T]) HasResult() bool {
	var zero T
	return t.result != zero
}

// Full reports whether both the source and the target slot are set.
func (t Triple[T]) Full() bool {
	return t.HasSource() && t.HasTarget()
}

// Correspond joins up to three element collections by id. It returns one
// triple per distinct id, in order of first appearance (source, then target,
// then result). A nil result collection is allowed.
func Correspond[T comparable](idOf func(T) string, source, target, result []T) []Triple[T] {
	var zero T
	index := make(map[string]int)
	var triples []Triple[T]

	slot := func(v T) *Triple[T] {
		key := idOf(v)
		i, ok := index[key]
		if !ok {
			i = len(triples)
			index[key] = i
			triples = append(triples, Triple[T]{})
		}
		return &triples[i]
	}

	for _, v := range source {
		if v != zero {
			slot(v).source = v
		}
	}
	for _, v := range target {
		if v != zero {
			slot(v).target = v
		}
	}
	for _, v := range result {
		if v != zero {
			slot(v).result = v
		}
	}
	return triples
}

func sheetID(s *workbook.Sheet) string               { return s.ID }
func styleID(s *workbook.Style) string               { return s.ID }
func relationshipID(r *workbook.Relationship) string { return r.ID }
