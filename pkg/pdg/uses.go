package pdg

import "github.com/l3aro/jspdg/pkg/jsast"

// useCollector gathers identifier names under an expression. Results are
// memoized by node ID for the lifetime of one extraction.
type useCollector struct {
	limit int
	memo  map[int][]string
}

func newUseCollector(limit int) *useCollector {
	return &useCollector{limit: limit, memo: make(map[int][]string)}
}

// collect walks root with an explicit stack, in source order, and returns
// every identifier name it meets. Literal containers are not entered, so
// names inside array, object and template literals are not uses. The walk
// stops once limit names are collected.
func (u *useCollector) collect(root jsast.Node) []string {
	if root == nil {
		return nil
	}
	if names, ok := u.memo[root.ID()]; ok {
		return names
	}

	names := make([]string, 0)
	stack := []jsast.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id, ok := n.(*jsast.Identifier); ok {
			names = append(names, id.Name)
			if len(names) >= u.limit {
				break
			}
		}
		if n.Kind().IsAtomic() {
			continue
		}
		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	u.memo[root.ID()] = names
	return names
}
