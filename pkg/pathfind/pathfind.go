// Package pathfind implements the best-first hex-grid search of
// spec.md §4.3: Dijkstra with an optional L1 lower-bound heuristic
// (making it A*), deterministic tie-breaking, and a search-node budget.
package pathfind

import (
	"container/heap"

	"chainrealm/pkg/hexgrid"
)

// WeightFunc returns the edge weight from `from` to `to` and whether
// the edge exists at all. Implementations compose mapdata.Oracle,
// mapdata.MovementWeight and pkg/obstacles blocking rules; pathfind
// itself is agnostic to what "blocked" means.
type WeightFunc func(from, to hexgrid.Coord) (weight int64, ok bool)

// Heuristic estimates the remaining cost from c to the goal. A nil
// heuristic degrades the search to plain Dijkstra; the L1 hex distance
// is an admissible heuristic when edge weights are never negative.
type Heuristic func(c hexgrid.Coord) int64

// Result is the outcome of a FindPath call.
type Result struct {
	Steps []hexgrid.Coord // inclusive of start and goal
	Cost  int64
	Found bool
}

type queueItem struct {
	coord    hexgrid.Coord
	priority int64
	index    int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	// Deterministic tie-break: lexicographic coordinate ordering
	// (spec.md §4.3).
	return hexgrid.Less(pq[i].coord, pq[j].coord)
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// FindPath searches from start to goal, expanding at most maxNodes
// distinct coordinates before giving up.
func FindPath(start, goal hexgrid.Coord, weight WeightFunc, h Heuristic, maxNodes int) Result {
	if start == goal {
		return Result{Steps: []hexgrid.Coord{start}, Cost: 0, Found: true}
	}
	if h == nil {
		h = func(hexgrid.Coord) int64 { return 0 }
	}

	dist := map[hexgrid.Coord]int64{start: 0}
	prev := map[hexgrid.Coord]hexgrid.Coord{}
	visited := map[hexgrid.Coord]bool{}

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{coord: start, priority: h(start)})

	expanded := 0
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*queueItem)
		cur := item.coord
		if visited[cur] {
			continue
		}
		visited[cur] = true
		expanded++
		if expanded > maxNodes {
			return Result{Found: false}
		}
		if cur == goal {
			return Result{Steps: reconstruct(prev, start, goal), Cost: dist[goal], Found: true}
		}
		for _, next := range cur.Neighbors() {
			w, ok := weight(cur, next)
			if !ok {
				continue
			}
			nd := dist[cur] + w
			if existing, seen := dist[next]; seen && existing <= nd {
				continue
			}
			dist[next] = nd
			prev[next] = cur
			heap.Push(pq, &queueItem{coord: next, priority: nd + h(next)})
		}
	}
	return Result{Found: false}
}

func reconstruct(prev map[hexgrid.Coord]hexgrid.Coord, start, goal hexgrid.Coord) []hexgrid.Coord {
	steps := []hexgrid.Coord{goal}
	cur := goal
	for cur != start {
		cur = prev[cur]
		steps = append(steps, cur)
	}
	// reverse in place
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}
