package gridplan

import (
	"container/heap"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type neighbor struct {
	col, row int
	cost     float64 // in cells
}

var neighborOffsets = [...]neighbor{
	{col: 1, row: 0, cost: 1},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 0, cost: 1},
	{col: 0, row: -1, cost: 1},
	{col: -1, row: -1, cost: math.Sqrt2},
	{col: -1, row: 1, cost: math.Sqrt2},
	{col: 1, row: -1, cost: math.Sqrt2},
	{col: 1, row: 1, cost: math.Sqrt2},
}

// Plan builds a grid from the obstacle points and searches it for a path
// from start to goal. The returned waypoints are cell centers running from
// the start cell to the goal cell.
func Plan(obstacles []r2.Vec, opts Options, start, goal r2.Vec) ([]r2.Vec, error) {
	g, err := NewGrid(obstacles, opts)
	if err != nil {
		return nil, err
	}
	return g.Plan(start, goal)
}

// Plan runs an 8-connected A* search with Euclidean step costs and heuristic.
// The start cell may be blocked; a blocked goal cell yields ErrNoPath.
func (g *Grid) Plan(start, goal r2.Vec) ([]r2.Vec, error) {
	s, ok := g.Locate(start)
	if !ok {
		return nil, fmt.Errorf("start %v: %w", start, ErrOutOfBounds)
	}
	e, ok := g.Locate(goal)
	if !ok {
		return nil, fmt.Errorf("goal %v: %w", goal, ErrOutOfBounds)
	}
	if g.Blocked(e) {
		return nil, fmt.Errorf("goal cell %v is blocked: %w", g.Position(e), ErrNoPath)
	}

	end, found := g.astar(s, e)
	if !found {
		return nil, fmt.Errorf("from %v to %v: %w", start, goal, ErrNoPath)
	}

	cells := reconstructPath(end)
	path := make([]r2.Vec, len(cells))
	for i, c := range cells {
		path[i] = g.Position(c)
	}
	return path, nil
}

type pathNode struct {
	cell   Cell
	g      float64
	f      float64
	seq    int
	index  int
	parent *pathNode
}

// pathQueue orders nodes by f; equal f pops in insertion order.
type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *Grid) heuristic(a, b Cell) float64 {
	return g.res * math.Hypot(float64(a.Col-b.Col), float64(a.Row-b.Row))
}

func (g *Grid) astar(start, goal Cell) (*pathNode, bool) {
	open := &pathQueue{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &pathNode{cell: start, f: g.heuristic(start, goal)})
	gScore := map[int]float64{g.index(start): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := g.index(current.cell)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.cell == goal {
			return current, true
		}

		for _, delta := range neighborOffsets {
			next := Cell{Col: current.cell.Col + delta.col, Row: current.cell.Row + delta.row}
			if g.Blocked(next) {
				continue
			}
			idx := g.index(next)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentativeG := current.g + delta.cost*g.res
			if prev, ok := gScore[idx]; ok && tentativeG >= prev {
				continue
			}
			gScore[idx] = tentativeG
			seq++
			heap.Push(open, &pathNode{
				cell:   next,
				g:      tentativeG,
				f:      tentativeG + g.heuristic(next, goal),
				seq:    seq,
				parent: current,
			})
		}
	}
	return nil, false
}

func reconstructPath(end *pathNode) []Cell {
	var path []Cell
	for node := end; node != nil; node = node.parent {
		path = append(path, node.cell)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathLength returns the summed segment lengths of path.
func PathLength(path []r2.Vec) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += r2.Norm(r2.Sub(path[i], path[i-1]))
	}
	return total
}
