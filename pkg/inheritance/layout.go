// Package inheritance lays out control-inheritance trees in rows and renders
// them as SVG.
package inheritance

import (
	"fmt"
	"sort"
)

// Node is a system in the tree.
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Subtitle string `json:"subtitle,omitempty"`
}

// Edge points from a providing system to a system that inherits from it.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight,omitempty"`
}

// Options controls geometry. Zero fields take DefaultOptions values.
type Options struct {
	NodeWidth  float64
	NodeHeight float64
	ColumnGap  float64
	RowGap     float64
	Padding    float64
}

// DefaultOptions matches the dimensions used by the web client.
var DefaultOptions = Options{
	NodeWidth:  180,
	NodeHeight: 56,
	ColumnGap:  40,
	RowGap:     80,
	Padding:    24,
}

// PlacedNode is a node with its top-left position and row.
type PlacedNode struct {
	Node
	Depth  int     `json:"depth"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PlacedEdge is an edge with its bezier path.
type PlacedEdge struct {
	Edge
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	Path string  `json:"path"`
}

// Layout is the positioned tree.
type Layout struct {
	Nodes  []PlacedNode `json:"nodes"`
	Edges  []PlacedEdge `json:"edges"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
}

func (o Options) withDefaults() Options {
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultOptions.NodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = DefaultOptions.NodeHeight
	}
	if o.ColumnGap <= 0 {
		o.ColumnGap = DefaultOptions.ColumnGap
	}
	if o.RowGap <= 0 {
		o.RowGap = DefaultOptions.RowGap
	}
	if o.Padding <= 0 {
		o.Padding = DefaultOptions.Padding
	}
	return o
}

// Compute assigns each node a row by breadth-first depth from the roots and
// centres every row against the widest one. Roots are nodes with no incoming
// edge; when a group of nodes is reachable only through a cycle, its first
// node in input order becomes a root. Edges naming unknown nodes and
// self-loops are dropped.
func Compute(nodes []Node, edges []Edge, opts Options) Layout {
	opts = opts.withDefaults()

	index := make(map[string]int, len(nodes))
	unique := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		index[n.ID] = len(unique)
		unique = append(unique, n)
	}

	children := make(map[string][]string, len(unique))
	indegree := make(map[string]int, len(unique))
	valid := make([]Edge, 0, len(edges))
	seenEdge := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		_, okFrom := index[e.From]
		_, okTo := index[e.To]
		key := [2]string{e.From, e.To}
		if !okFrom || !okTo || e.From == e.To || seenEdge[key] {
			continue
		}
		seenEdge[key] = true
		children[e.From] = append(children[e.From], e.To)
		indegree[e.To]++
		valid = append(valid, e)
	}

	depth := make(map[string]int, len(unique))
	bfs := func(roots []string) {
		queue := append([]string{}, roots...)
		for _, r := range roots {
			depth[r] = 0
		}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, child := range children[id] {
				if _, seen := depth[child]; seen {
					continue
				}
				depth[child] = depth[id] + 1
				queue = append(queue, child)
			}
		}
	}

	var roots []string
	for _, n := range unique {
		if indegree[n.ID] == 0 {
			roots = append(roots, n.ID)
		}
	}
	bfs(roots)
	for _, n := range unique {
		if _, placed := depth[n.ID]; !placed {
			bfs([]string{n.ID})
		}
	}

	rows := map[int][]Node{}
	maxDepth := -1
	for _, n := range unique {
		d := depth[n.ID]
		rows[d] = append(rows[d], n)
		if d > maxDepth {
			maxDepth = d
		}
	}

	widest := 0
	for d := 0; d <= maxDepth; d++ {
		if len(rows[d]) > widest {
			widest = len(rows[d])
		}
	}
	rowWidth := func(count int) float64 {
		if count == 0 {
			return 0
		}
		return float64(count)*opts.NodeWidth + float64(count-1)*opts.ColumnGap
	}
	contentWidth := rowWidth(widest)

	layout := Layout{Nodes: make([]PlacedNode, 0, len(unique)), Edges: make([]PlacedEdge, 0, len(valid))}
	placed := make(map[string]PlacedNode, len(unique))
	for d := 0; d <= maxDepth; d++ {
		row := rows[d]
		offset := opts.Padding + (contentWidth-rowWidth(len(row)))/2
		y := opts.Padding + float64(d)*(opts.NodeHeight+opts.RowGap)
		for i, n := range row {
			p := PlacedNode{
				Node:   n,
				Depth:  d,
				X:      offset + float64(i)*(opts.NodeWidth+opts.ColumnGap),
				Y:      y,
				Width:  opts.NodeWidth,
				Height: opts.NodeHeight,
			}
			placed[n.ID] = p
			layout.Nodes = append(layout.Nodes, p)
		}
	}

	for _, e := range valid {
		from, to := placed[e.From], placed[e.To]
		x1 := from.X + from.Width/2
		y1 := from.Y + from.Height
		x2 := to.X + to.Width/2
		y2 := to.Y
		layout.Edges = append(layout.Edges, PlacedEdge{
			Edge: e,
			X1:   x1,
			Y1:   y1,
			X2:   x2,
			Y2:   y2,
			Path: BezierPath(x1, y1, x2, y2),
		})
	}
	sort.SliceStable(layout.Edges, func(i, j int) bool {
		if layout.Edges[i].From != layout.Edges[j].From {
			return layout.Edges[i].From < layout.Edges[j].From
		}
		return layout.Edges[i].To < layout.Edges[j].To
	})

	if len(unique) > 0 {
		layout.Width = contentWidth + 2*opts.Padding
		layout.Height = float64(maxDepth+1)*opts.NodeHeight + float64(maxDepth)*opts.RowGap + 2*opts.Padding
	}
	return layout
}

// BezierPath returns a vertical cubic curve between two anchors with both
// control points on the vertical midpoint.
func BezierPath(x1, y1, x2, y2 float64) string {
	my := (y1 + y2) / 2
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(x1), num(y1), num(x1), num(my), num(x2), num(my), num(x2), num(y2))
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
