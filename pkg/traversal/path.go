package traversal

import (
	"github.com/helixdb/helix-go/pkg/graph"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/value"
)

// ShortestPath expands each source Node into at most one Path, found by
// breadth-first search over edgeLabel between the node and to (spec §4.5).
// A missing path yields empty for that source, not an error.
func (e *Engine) ShortestPath(txn *kv.Txn, it Iterator, edgeLabel string, to value.ID) Iterator {
	return flatMap(it, func(v Val) ([]Val, error) {
		path, found, err := e.bfsShortestPath(txn, v.Node.ID, to, edgeLabel)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return []Val{PathValOf(path)}, nil
	})
}

type bfsParent struct {
	node value.ID
	edge value.ID
}

func (e *Engine) bfsShortestPath(txn *kv.Txn, from, to value.ID, edgeLabel string) (PathVal, bool, error) {
	if from == to {
		n, err := e.Graph.GetNode(txn, from)
		if err != nil {
			return PathVal{}, false, err
		}
		return PathVal{Nodes: []*graph.Node{n}}, true, nil
	}

	visited := map[value.ID]bool{from: true}
	parent := map[value.ID]bfsParent{}
	queue := []value.ID{from}

	var sink value.ID
	found := false

	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]

		adj, err := e.Graph.OutEdges(txn, cur, edgeLabel)
		if err != nil {
			return PathVal{}, false, err
		}
		for _, a := range adj {
			if visited[a.Other] {
				continue
			}
			visited[a.Other] = true
			parent[a.Other] = bfsParent{node: cur, edge: a.EdgeID}
			if a.Other == to {
				sink = a.Other
				found = true
				break
			}
			queue = append(queue, a.Other)
		}
	}

	if !found {
		return PathVal{}, false, nil
	}

	var nodeIDs []value.ID
	var edgeIDs []value.ID
	cur := sink
	for cur != from {
		p := parent[cur]
		nodeIDs = append([]value.ID{cur}, nodeIDs...)
		edgeIDs = append([]value.ID{p.edge}, edgeIDs...)
		cur = p.node
	}
	nodeIDs = append([]value.ID{from}, nodeIDs...)

	path := PathVal{}
	for _, id := range nodeIDs {
		n, err := e.Graph.GetNode(txn, id)
		if err != nil {
			return PathVal{}, false, err
		}
		path.Nodes = append(path.Nodes, n)
	}
	for _, id := range edgeIDs {
		ed, err := e.Graph.GetEdge(txn, id)
		if err != nil {
			return PathVal{}, false, err
		}
		path.Edges = append(path.Edges, ed)
	}
	return path, true, nil
}
