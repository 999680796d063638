// Package dag implements a generic directed graph keyed by node identity.
//
// The graph keeps a successor and a predecessor index that always agree: an
// edge exists iff it appears in both. Every query that returns several nodes
// returns them in the order the nodes were first added, so traversals, cycle
// reports and topological orders are reproducible across runs.
//
// A Graph is not safe for concurrent use.
package dag
