package vector

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"

	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
)

// Index is a KV-resident HNSW index for one vector label. Construct with
// New; every method takes the caller's transaction, so inserts/searches
// compose with graph/bm25 operations in the same write or read txn.
type Index struct {
	env      *kv.Environment
	label    string
	dims     int
	config   Config
	distance Distance

	vectors    *kv.Store // vectors[label‖id‖level] -> raw float64 payload
	vectorData *kv.Store // vector_data[label‖id] -> maxLevel + properties
	edges      *kv.Store // hnsw_edges[label‖source‖level‖sink] -> empty marker
	meta       *kv.Store // meta["hnsw_entry\x00"+label] -> id‖maxLevel
}

// New constructs an Index for label over dims-dimensional vectors.
func New(env *kv.Environment, label string, dims int, config Config) *Index {
	return &Index{
		env:        env,
		label:      label,
		dims:       dims,
		config:     config.Clamp(),
		distance:   Euclidean,
		vectors:    env.Store(string(kv.Vectors)),
		vectorData: env.Store(string(kv.VectorData)),
		edges:      env.Store(string(kv.HNSWEdges)),
		meta:       env.Store(string(kv.Meta)),
	}
}

// SetDistance overrides the default Euclidean metric.
func (idx *Index) SetDistance(d Distance) { idx.distance = d }

type entryPoint struct {
	id       value.ID
	maxLevel int
}

func (idx *Index) getEntryPoint(txn *kv.Txn) (entryPoint, bool, error) {
	raw, err := idx.meta.Get(txn, entryPointKey(idx.label))
	if err != nil {
		if herr.Is(err, herr.KindNotFound) {
			return entryPoint{}, false, nil
		}
		return entryPoint{}, false, err
	}
	if len(raw) != 17 {
		return entryPoint{}, false, herr.New(herr.KindVectorIndex, "corrupt entry point record")
	}
	id, err := value.IDFromBytes(raw[:16])
	if err != nil {
		return entryPoint{}, false, err
	}
	return entryPoint{id: id, maxLevel: int(raw[16])}, true, nil
}

func (idx *Index) setEntryPoint(txn *kv.Txn, ep entryPoint) error {
	buf := append(ep.id.Bytes(), byte(ep.maxLevel))
	return idx.meta.Put(txn, entryPointKey(idx.label), buf)
}

func (idx *Index) clearEntryPoint(txn *kv.Txn) error {
	return idx.meta.Delete(txn, entryPointKey(idx.label))
}

// randomLevel samples the insertion level per spec §4.3: level = floor(-ln(u) * m_L).
func (idx *Index) randomLevel() int {
	u := rand.Float64()
	for u == 0 {
		u = rand.Float64()
	}
	return int(-math.Log(u) * idx.config.LevelMultiplier)
}

func (idx *Index) getVector(txn *kv.Txn, id value.ID, level int) ([]float64, error) {
	raw, err := idx.vectors.Get(txn, vectorKey(idx.label, id, level))
	if err != nil {
		return nil, err
	}
	return decodeRawVector(raw)
}

func (idx *Index) getVectorData(txn *kv.Txn, id value.ID) (vectorDataRecord, error) {
	raw, err := idx.vectorData.Get(txn, vectorDataKey(idx.label, id))
	if err != nil {
		return vectorDataRecord{}, err
	}
	return decodeVectorData(raw)
}

func (idx *Index) neighbors(txn *kv.Txn, id value.ID, level int) ([]value.ID, error) {
	entries, err := idx.edges.ScanPrefix(txn, edgePrefix(idx.label, id, level))
	if err != nil {
		return nil, err
	}
	out := make([]value.ID, 0, len(entries))
	for _, ent := range entries {
		nid, err := value.IDFromBytes(ent.Suffix)
		if err != nil {
			continue
		}
		out = append(out, nid)
	}
	return out, nil
}

func (idx *Index) setNeighbors(txn *kv.Txn, id value.ID, level int, neighbors []value.ID) error {
	existing, err := idx.neighbors(txn, id, level)
	if err != nil {
		return err
	}
	keep := make(map[value.ID]bool, len(neighbors))
	for _, n := range neighbors {
		keep[n] = true
	}
	for _, old := range existing {
		if !keep[old] {
			if err := idx.edges.Delete(txn, edgeKey(idx.label, id, level, old)); err != nil {
				return err
			}
		}
	}
	for _, n := range neighbors {
		if err := idx.edges.Put(txn, edgeKey(idx.label, id, level, n), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) addNeighbor(txn *kv.Txn, id value.ID, level int, neighbor value.ID) error {
	return idx.edges.Put(txn, edgeKey(idx.label, id, level, neighbor), []byte{})
}

// Exists reports whether id has a (possibly tombstoned) record.
func (idx *Index) Exists(txn *kv.Txn, id value.ID) (bool, error) {
	return idx.vectorData.Exists(txn, vectorDataKey(idx.label, id))
}

// Insert runs the spec §4.3 insertion algorithm: assign a level, persist the
// vector at every level 0..level, greedily descend from the current entry
// point, then at each level select and wire up to M (or MMax0 at level 0)
// neighbors, pruning affected neighbors' link sets to the same cap.
func (idx *Index) Insert(txn *kv.Txn, id value.ID, vec []float64, props map[string]value.Value) error {
	if len(vec) != idx.dims {
		return herr.New(herr.KindVectorIndex, "vector dimension mismatch: want %d, got %d", idx.dims, len(vec))
	}
	level := idx.randomLevel()

	for l := 0; l <= level; l++ {
		if err := idx.vectors.Put(txn, vectorKey(idx.label, id, l), encodeRawVector(vec)); err != nil {
			return err
		}
	}
	if props == nil {
		props = map[string]value.Value{}
	}
	if err := idx.vectorData.Put(txn, vectorDataKey(idx.label, id), encodeVectorData(vectorDataRecord{MaxLevel: level, Properties: props})); err != nil {
		return err
	}

	ep, hasEntry, err := idx.getEntryPoint(txn)
	if err != nil {
		return err
	}
	if !hasEntry {
		return idx.setEntryPoint(txn, entryPoint{id: id, maxLevel: level})
	}

	cur := ep.id
	for l := ep.maxLevel; l > level; l-- {
		cur, err = idx.searchLayerSingle(txn, vec, cur, l)
		if err != nil {
			return err
		}
	}

	top := ep.maxLevel
	if level < top {
		top = level
	}
	for l := top; l >= 0; l-- {
		candidates, err := idx.searchLayer(txn, vec, cur, idx.config.EfConstruction, l)
		if err != nil {
			return err
		}
		neighborCap := idx.config.M
		if l == 0 {
			neighborCap = idx.config.MMax0
		}
		chosen, err := idx.selectNeighbors(txn, vec, candidates, neighborCap)
		if err != nil {
			return err
		}
		if err := idx.setNeighbors(txn, id, l, chosen); err != nil {
			return err
		}
		for _, neighborID := range chosen {
			if err := idx.addNeighbor(txn, neighborID, l, id); err != nil {
				return err
			}
			nVec, err := idx.getVector(txn, neighborID, l)
			if err != nil {
				continue
			}
			existing, err := idx.neighbors(txn, neighborID, l)
			if err != nil {
				return err
			}
			if len(existing) > neighborCap {
				pruned, err := idx.selectNeighbors(txn, nVec, existing, neighborCap)
				if err != nil {
					return err
				}
				if err := idx.setNeighbors(txn, neighborID, l, pruned); err != nil {
					return err
				}
			}
		}
		if len(candidates) > 0 {
			cur = candidates[0]
		}
	}

	if level > ep.maxLevel {
		return idx.setEntryPoint(txn, entryPoint{id: id, maxLevel: level})
	}
	return nil
}

// Delete tombstones id (spec §4.3: "properties.is_deleted := true"; physical
// removal is out of scope). Double-delete is an error.
func (idx *Index) Delete(txn *kv.Txn, id value.ID) error {
	rec, err := idx.getVectorData(txn, id)
	if err != nil {
		return err
	}
	if isDeleted(rec.Properties) {
		return herr.ErrVectorDeleted
	}
	rec.Properties["is_deleted"] = value.Bool(true)
	if err := idx.vectorData.Put(txn, vectorDataKey(idx.label, id), encodeVectorData(rec)); err != nil {
		return err
	}

	ep, hasEntry, err := idx.getEntryPoint(txn)
	if err != nil {
		return err
	}
	if hasEntry && ep.id == id {
		return idx.promoteEntryPoint(txn, id)
	}
	return nil
}

// promoteEntryPoint picks a replacement entry point after the current one is
// tombstoned, preferring the highest remaining level (the teacher's Remove
// scans every node for the new max level; here that scan is a bounded
// prefix walk over vector_data since levels aren't indexed separately).
func (idx *Index) promoteEntryPoint(txn *kv.Txn, excluding value.ID) error {
	entries, err := idx.vectorData.ScanPrefix(txn, labelPrefix(idx.label))
	if err != nil {
		return err
	}
	var best entryPoint
	found := false
	for _, ent := range entries {
		id, err := value.IDFromBytes(ent.Suffix)
		if err != nil || id == excluding {
			continue
		}
		rec, err := decodeVectorData(ent.Value)
		if err != nil || isDeleted(rec.Properties) {
			continue
		}
		if !found || rec.MaxLevel > best.maxLevel {
			best = entryPoint{id: id, maxLevel: rec.MaxLevel}
			found = true
		}
	}
	if !found {
		return idx.clearEntryPoint(txn)
	}
	return idx.setEntryPoint(txn, best)
}

// FilterFunc is evaluated during neighbor expansion in Search (spec §4.3),
// and once more on the final candidates, so the entry point is held to it too.
type FilterFunc func(txn *kv.Txn, id value.ID, props map[string]value.Value) (bool, error)

// SearchOptions configures Search.
type SearchOptions struct {
	Filters       []FilterFunc
	ShouldTrickle bool // apply Filters at every level, not just level 0
}

// Result is one scored search hit.
type Result struct {
	ID       value.ID
	Distance float64
}

// Search runs the spec §4.3 search algorithm: greedy-descend with ef=1 to
// level 1, then best-first search at level 0 with ef=ef_search, returning
// the top-k by distance. Tombstoned vectors and vectors failing
// opts.Filters are excluded from results.
func (idx *Index) Search(txn *kv.Txn, query []float64, k int, opts SearchOptions) ([]Result, error) {
	if len(query) != idx.dims {
		return nil, herr.New(herr.KindVectorIndex, "vector dimension mismatch: want %d, got %d", idx.dims, len(query))
	}
	ep, hasEntry, err := idx.getEntryPoint(txn)
	if err != nil {
		return nil, err
	}
	if !hasEntry {
		return nil, herr.ErrEntryPointMissing
	}

	cur := ep.id
	for l := ep.maxLevel; l > 0; l-- {
		cur, err = idx.searchLayerSingleFiltered(txn, query, cur, l, opts)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := idx.searchLayerFiltered(txn, query, cur, idx.config.EfSearch, 0, opts, true)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, cid := range candidates {
		rec, err := idx.getVectorData(txn, cid)
		if err != nil || isDeleted(rec.Properties) {
			continue
		}
		if ok, err := idx.passesFilter(txn, cid, opts); err != nil {
			return nil, err
		} else if !ok {
			continue
		}
		vec, err := idx.getVector(txn, cid, 0)
		if err != nil {
			continue
		}
		results = append(results, Result{ID: cid, Distance: idx.distance(query, vec)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// BruteForceSearch scans every live vector under the label and ranks by
// exact distance, per spec §4.5's brute_force_search_v source step — the
// ground truth HNSW's approximate Search is checked against.
func (idx *Index) BruteForceSearch(txn *kv.Txn, query []float64, k int) ([]Result, error) {
	if len(query) != idx.dims {
		return nil, herr.New(herr.KindVectorIndex, "vector dimension mismatch: want %d, got %d", idx.dims, len(query))
	}
	entries, err := idx.vectorData.ScanPrefix(txn, labelPrefix(idx.label))
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(entries))
	for _, ent := range entries {
		id, err := value.IDFromBytes(ent.Suffix)
		if err != nil {
			continue
		}
		rec, err := decodeVectorData(ent.Value)
		if err != nil || isDeleted(rec.Properties) {
			continue
		}
		vec, err := idx.getVector(txn, id, 0)
		if err != nil {
			continue
		}
		results = append(results, Result{ID: id, Distance: idx.distance(query, vec)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (idx *Index) passesFilter(txn *kv.Txn, id value.ID, opts SearchOptions) (bool, error) {
	if len(opts.Filters) == 0 {
		return true, nil
	}
	rec, err := idx.getVectorData(txn, id)
	if err != nil {
		return false, err
	}
	for _, f := range opts.Filters {
		ok, err := f(txn, id, rec.Properties)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (idx *Index) searchLayerSingleFiltered(txn *kv.Txn, query []float64, entryID value.ID, level int, opts SearchOptions) (value.ID, error) {
	applyFilter := opts.ShouldTrickle
	return idx.searchLayerSingleImpl(txn, query, entryID, level, applyFilter, opts)
}

func (idx *Index) searchLayerSingleImpl(txn *kv.Txn, query []float64, entryID value.ID, level int, applyFilter bool, opts SearchOptions) (value.ID, error) {
	current := entryID
	curVec, err := idx.getVector(txn, current, level)
	if err != nil {
		return current, err
	}
	currentDist := idx.distance(query, curVec)

	for {
		changed := false
		ns, err := idx.neighbors(txn, current, level)
		if err != nil {
			return current, err
		}
		for _, n := range ns {
			if applyFilter {
				ok, err := idx.passesFilter(txn, n, opts)
				if err != nil {
					return current, err
				}
				if !ok {
					continue
				}
			}
			nVec, err := idx.getVector(txn, n, level)
			if err != nil {
				continue
			}
			dist := idx.distance(query, nVec)
			if dist < currentDist {
				current = n
				currentDist = dist
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return current, nil
}

func (idx *Index) searchLayerSingle(txn *kv.Txn, query []float64, entryID value.ID, level int) (value.ID, error) {
	return idx.searchLayerSingleImpl(txn, query, entryID, level, false, SearchOptions{})
}

type distItem struct {
	id   value.ID
	dist float64
}

type minHeap []distItem

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type maxHeap []distItem

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (idx *Index) searchLayer(txn *kv.Txn, query []float64, entryID value.ID, ef, level int) ([]value.ID, error) {
	return idx.searchLayerFiltered(txn, query, entryID, ef, level, SearchOptions{}, false)
}

// searchLayerFiltered is the best-first search from spec §4.3: a min-heap of
// candidates to expand and a max-heap of the best ef results seen so far.
func (idx *Index) searchLayerFiltered(txn *kv.Txn, query []float64, entryID value.ID, ef, level int, opts SearchOptions, applyFilter bool) ([]value.ID, error) {
	visited := map[value.ID]bool{entryID: true}

	candidates := &minHeap{}
	results := &maxHeap{}
	heap.Init(candidates)
	heap.Init(results)

	entryVec, err := idx.getVector(txn, entryID, level)
	if err != nil {
		return nil, err
	}
	entryDist := idx.distance(query, entryVec)
	heap.Push(candidates, distItem{id: entryID, dist: entryDist})
	heap.Push(results, distItem{id: entryID, dist: entryDist})

	for candidates.Len() > 0 {
		closest := heap.Pop(candidates).(distItem)
		if results.Len() >= ef && closest.dist > (*results)[0].dist {
			break
		}

		ns, err := idx.neighbors(txn, closest.id, level)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			if visited[n] {
				continue
			}
			visited[n] = true

			if applyFilter || (opts.ShouldTrickle && len(opts.Filters) > 0) {
				ok, err := idx.passesFilter(txn, n, opts)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}

			nVec, err := idx.getVector(txn, n, level)
			if err != nil {
				continue
			}
			dist := idx.distance(query, nVec)
			if results.Len() < ef || dist < (*results)[0].dist {
				heap.Push(candidates, distItem{id: n, dist: dist})
				heap.Push(results, distItem{id: n, dist: dist})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]value.ID, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(distItem).id
	}
	return out, nil
}

// selectNeighbors is the "simple heuristic" neighbor-selection step of spec
// §4.3: pick the m closest candidates to query by distance.
func (idx *Index) selectNeighbors(txn *kv.Txn, query []float64, candidates []value.ID, m int) ([]value.ID, error) {
	if len(candidates) <= m {
		return candidates, nil
	}
	type scored struct {
		id   value.ID
		dist float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, cid := range candidates {
		vec, err := idx.getVector(txn, cid, 0)
		if err != nil {
			continue
		}
		scoredList = append(scoredList, scored{id: cid, dist: idx.distance(query, vec)})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].dist < scoredList[j].dist })
	if len(scoredList) > m {
		scoredList = scoredList[:m]
	}
	out := make([]value.ID, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.id
	}
	return out, nil
}
