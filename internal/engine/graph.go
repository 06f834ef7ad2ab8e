package engine

import (
	"fmt"
	"sort"
)

// GraphNode is one resource in the dependency graph. Deps lists the
// addresses this node depends on; only deps that name another node in the
// same graph become edges. Priority is the plan priority class (lower
// orders first); declaration order breaks remaining ties so repeated
// planning over unchanged input yields byte-identical ordering.
type GraphNode struct {
	Address  string
	Deps     []string
	Priority int
}

// DAG is a directed acyclic graph of resources with a deterministic
// linearization. Building it is a pure function of its input.
type DAG struct {
	nodes map[string]*dagNode
	order []string
}

type dagNode struct {
	addr     string
	deps     []string
	priority int
	index    int
}

// BuildDAG constructs the graph and computes a stable topological order:
// priority class ascending, then dependency precedence, then declaration
// order. It fails with a CycleError naming the full cycle path when the
// dependencies are circular.
func BuildDAG(nodes []GraphNode) (*DAG, error) {
	d := &DAG{
		nodes: make(map[string]*dagNode, len(nodes)),
	}

	for i, n := range nodes {
		if _, exists := d.nodes[n.Address]; exists {
			return nil, &DuplicateAddressError{Address: n.Address}
		}
		d.nodes[n.Address] = &dagNode{
			addr:     n.Address,
			priority: n.Priority,
			index:    i,
		}
	}

	// Edges only for deps present in the graph; deps outside the node set
	// are the caller's concern (validated during planning).
	for _, n := range nodes {
		node := d.nodes[n.Address]
		seen := make(map[string]bool, len(n.Deps))
		for _, dep := range n.Deps {
			if dep == n.Address || seen[dep] {
				continue
			}
			if _, ok := d.nodes[dep]; ok {
				node.deps = append(node.deps, dep)
				seen[dep] = true
			}
		}
		sort.Strings(node.deps)
	}

	if cycle := d.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	d.order = d.linearize()
	return d, nil
}

// Order returns the create/update linearization.
func (d *DAG) Order() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// ReverseOrder returns the destroy linearization: the exact reverse of
// Order, so dependents are destroyed before their dependencies.
func (d *DAG) ReverseOrder() []string {
	out := make([]string, len(d.order))
	for i, addr := range d.order {
		out[len(d.order)-1-i] = addr
	}
	return out
}

// Dependencies returns the in-graph dependency edges for an address.
func (d *DAG) Dependencies(addr string) []string {
	node, ok := d.nodes[addr]
	if !ok {
		return nil
	}
	out := make([]string, len(node.deps))
	copy(out, node.deps)
	return out
}

// findCycle runs a depth-first traversal with a recursion stack and
// returns the first cycle found as an ordered address path (first node
// repeated at the end), or nil.
func (d *DAG) findCycle() []string {
	addrs := make([]string, 0, len(d.nodes))
	for addr := range d.nodes {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	visited := make(map[string]bool, len(d.nodes))
	onStack := make(map[string]bool, len(d.nodes))
	var stack []string

	var visit func(addr string) []string
	visit = func(addr string) []string {
		visited[addr] = true
		onStack[addr] = true
		stack = append(stack, addr)

		for _, dep := range d.nodes[addr].deps {
			if onStack[dep] {
				start := 0
				for i, a := range stack {
					if a == dep {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return append(cycle, dep)
			}
			if !visited[dep] {
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		onStack[addr] = false
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, addr := range addrs {
		if !visited[addr] {
			if cycle := visit(addr); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// linearize runs Kahn's algorithm, always releasing the ready node with
// the lowest (priority, declaration index) pair. Must be called after
// cycle detection.
func (d *DAG) linearize() []string {
	indegree := make(map[string]int, len(d.nodes))
	dependents := make(map[string][]string, len(d.nodes))
	for addr, node := range d.nodes {
		indegree[addr] = len(node.deps)
		for _, dep := range node.deps {
			dependents[dep] = append(dependents[dep], addr)
		}
	}

	var ready []*dagNode
	for addr, deg := range indegree {
		if deg == 0 {
			ready = append(ready, d.nodes[addr])
		}
	}

	order := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if less(ready[i], ready[best]) {
				best = i
			}
		}
		node := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, node.addr)

		for _, dependent := range dependents[node.addr] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, d.nodes[dependent])
			}
		}
	}

	if len(order) != len(d.nodes) {
		panic(fmt.Sprintf("engine: linearize left %d nodes unordered", len(d.nodes)-len(order)))
	}
	return order
}

func less(a, b *dagNode) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.index < b.index
}
