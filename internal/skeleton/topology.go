package skeleton

import (
	"errors"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// orderTree checks that parents (-1 for none) describe a single rooted tree
// and returns the root and an evaluation order in which every node follows
// its parent. Names are used for error messages only.
func orderTree(names []string, parents []int) (int, []int, error) {
	var merr *multierror.Error

	root := -1
	g := simple.NewDirectedGraph()
	for i := range parents {
		g.AddNode(simple.Node(i))
	}
	for i, p := range parents {
		switch {
		case p == -1:
			if root >= 0 {
				merr = multierror.Append(merr, &StructureError{
					Joint:  names[i],
					Reason: "second root (first is " + names[root] + ")",
				})
				continue
			}
			root = i
		case p == i:
			merr = multierror.Append(merr, &StructureError{Joint: names[i], Reason: "is its own parent"})
		case p < 0 || p >= len(parents):
			merr = multierror.Append(merr, &StructureError{Joint: names[i], Reason: "parent out of range"})
		default:
			g.SetEdge(g.NewEdge(simple.Node(p), simple.Node(i)))
		}
	}
	if root < 0 && len(parents) > 0 {
		merr = multierror.Append(merr, &StructureError{Reason: "no root"})
	}
	if len(parents) == 0 {
		merr = multierror.Append(merr, &StructureError{Reason: "empty topology"})
	}

	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		var cycles topo.Unorderable
		if !errors.As(err, &cycles) {
			return 0, nil, multierror.Append(merr, err)
		}
		for _, c := range cycles {
			members := make([]string, len(c))
			for k, n := range c {
				members[k] = names[n.ID()]
			}
			sort.Strings(members)
			merr = multierror.Append(merr, &StructureError{
				Joint:  members[0],
				Reason: "cycle through " + strings.Join(members, ", "),
			})
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return 0, nil, err
	}

	order := make([]int, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, int(n.ID()))
	}
	return root, order, nil
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// childLists derives ordered child index lists from a parent table.
func childLists(parents []int) [][]int {
	children := make([][]int, len(parents))
	for i, p := range parents {
		if p >= 0 {
			children[p] = append(children[p], i)
		}
	}
	return children
}
