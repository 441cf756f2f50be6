package qosnet

// routes.go provides functions to create and access shortest path routes through a Topology

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// The general approach we use is to convert the topology's adjacency lists
// into the data structures used by a graph package that has built-in path discovery algorithms.
// Weighting each edge by 1, a shortest path minimizes the number of hops.
//
//   The Dijkstra algorithm we call computes a tree of shortest paths from a named node.
// So if we want the shortest path from src to dst, we either compute such a tree rooted in
// src, or look up from a cached version of an already computed tree the sequence of nodes
// between src and dst, inclusive.  Failing that we look for a known tree rooted in dst;
// cables are bidirectional so the path we want is that path reversed.

// router holds the graph representation of one topology, and the shortest path trees
// computed from it so far
type router struct {
	connGraph *simple.WeightedUndirectedGraph

	// cachedSP saves the result of computing shortest-path trees.
	// The key is the node index of the path source
	cachedSP map[int]path.Shortest
}

// createRouter builds the graph from a map binding a node index to the list of
// node indices it is cabled to.  Every one of the numNodes nodes is represented,
// isolated or not.
func createRouter(numNodes int, edges map[int][]int) *router {
	rtr := new(router)
	rtr.connGraph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	rtr.cachedSP = make(map[int]path.Shortest)

	for nodeIdx := 0; nodeIdx < numNodes; nodeIdx++ {
		rtr.connGraph.AddNode(simple.Node(nodeIdx))
	}

	// node index and the list of node indices of neighbors it connects to
	for nodeIdx, nbrList := range edges {
		for _, nbrIdx := range nbrList {
			// represent the edge (with weight 1) in the form that the graph module represents it
			weightedEdge := simple.WeightedEdge{F: simple.Node(nodeIdx), T: simple.Node(nbrIdx), W: 1.0}
			rtr.connGraph.SetWeightedEdge(weightedEdge)
		}
	}
	return rtr
}

// getSPTree returns the shortest path tree rooted in input argument 'from'.
// If the tree is found in the cache it is returned, if not it is computed, saved, and returned.
func (rtr *router) getSPTree(from int) path.Shortest {
	spTree, present := rtr.cachedSP[from]
	if present {
		return spTree
	}

	spTree = path.DijkstraFrom(simple.Node(from), rtr.connGraph)
	rtr.cachedSP[from] = spTree
	return spTree
}

// convertNodeSeq extracts node indices from a sequence of graph nodes
func convertNodeSeq(nsQ []graph.Node) []int {
	rtn := make([]int, 0, len(nsQ))
	for _, node := range nsQ {
		rtn = append(rtn, int(node.ID()))
	}
	return rtn
}

// route returns the shortest path (as a sequence of node indices, endpoints included)
// from srcIdx to dstIdx.  The flag is false when the endpoints are equal, out of range,
// or not connected; absence of a path is an ordinary outcome.
func (rtr *router) route(srcIdx, dstIdx int) ([]int, bool) {
	numNodes := rtr.connGraph.Nodes().Len()
	if srcIdx == dstIdx || srcIdx < 0 || dstIdx < 0 || srcIdx >= numNodes || dstIdx >= numNodes {
		return nil, false
	}

	var route []int

	// if we have already an spTree rooted in srcId we can use it, otherwise
	// check for a tree rooted in dstId, and failing that build one rooted in srcId
	_, present := rtr.cachedSP[srcIdx]
	if !present {
		if spTree, found := rtr.cachedSP[dstIdx]; found {
			revNodeSeq, _ := spTree.To(int64(srcIdx))
			revRoute := convertNodeSeq(revNodeSeq)

			// these are reverse order, so turn them back around
			lenR := len(revRoute)
			route = make([]int, 0, lenR)
			for idx := 0; idx < lenR; idx++ {
				route = append(route, revRoute[lenR-idx-1])
			}
			return route, len(route) > 1
		}
	}

	spTree := rtr.getSPTree(srcIdx)
	nodeSeq, _ := spTree.To(int64(dstIdx))
	route = convertNodeSeq(nodeSeq)
	return route, len(route) > 1
}
