package traversal

// Iterator is a single-pass, pull-based pipeline stage. Errors surface
// through Next rather than being swallowed, since every stage ultimately
// does fallible KV I/O (a deliberate departure from a bare
// "Next() (TraversalVal, bool)" signature: Go treats errors as values, not
// something to hide behind a sentinel element).
type Iterator interface {
	// Next returns the next value and true, or (_, false, nil) when
	// exhausted, or (_, false, err) on failure.
	Next() (Val, bool, error)
}

// sliceIterator replays a pre-materialized slice. Source steps that must
// read a whole index range (secondary index lookups, searches) and
// terminal steps that must see the whole sequence (order_by, dedup) both
// produce one of these to continue the pipeline.
type sliceIterator struct {
	vals []Val
	i    int
}

func fromSlice(vals []Val) Iterator { return &sliceIterator{vals: vals} }

// FromVals builds an Iterator over an already-materialized slice, for
// callers outside this package that need to re-enter the pipeline with a
// scope-bound or previously collected sequence (pkg/hql/codegen's source
// step for a traversal rooted at a local variable).
func FromVals(vals []Val) Iterator { return fromSlice(vals) }

func (s *sliceIterator) Next() (Val, bool, error) {
	if s.i >= len(s.vals) {
		return Val{}, false, nil
	}
	v := s.vals[s.i]
	s.i++
	return v, true, nil
}

// Collect drains an iterator into a slice, for any step or caller needing
// the full sequence.
func Collect(it Iterator) ([]Val, error) {
	var out []Val
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// mapFilterIterator applies fn to each value from inner, skipping values
// for which fn reports ok=false. This backs where/filter_ref (predicate)
// and exclude (pure reshape, always ok=true).
type mapFilterIterator struct {
	inner Iterator
	fn    func(Val) (Val, bool, error)
}

func mapFilter(inner Iterator, fn func(Val) (Val, bool, error)) Iterator {
	return &mapFilterIterator{inner: inner, fn: fn}
}

func (m *mapFilterIterator) Next() (Val, bool, error) {
	for {
		v, ok, err := m.inner.Next()
		if err != nil || !ok {
			return Val{}, false, err
		}
		out, keep, err := m.fn(v)
		if err != nil {
			return Val{}, false, err
		}
		if !keep {
			continue
		}
		return out, true, nil
	}
}

// flatMapIterator expands each value from inner into zero or more values
// via fn, flattening the result. This backs out/in/out_e/in_e, which turn
// one Node into a sequence of adjacent Nodes/Edges.
type flatMapIterator struct {
	inner   Iterator
	fn      func(Val) ([]Val, error)
	current []Val
	pos     int
}

func flatMap(inner Iterator, fn func(Val) ([]Val, error)) Iterator {
	return &flatMapIterator{inner: inner, fn: fn}
}

func (f *flatMapIterator) Next() (Val, bool, error) {
	for {
		if f.pos < len(f.current) {
			v := f.current[f.pos]
			f.pos++
			return v, true, nil
		}
		v, ok, err := f.inner.Next()
		if err != nil || !ok {
			return Val{}, false, err
		}
		expanded, err := f.fn(v)
		if err != nil {
			return Val{}, false, err
		}
		f.current = expanded
		f.pos = 0
	}
}
