package cursor

import (
	"github.com/noproto-io/noproto/internal/bufmem"
	"github.com/noproto-io/noproto/schema"
)

// Resolve walks path read-only from rootAddr, returning the address of
// the final value (0 if any step along the way was vacant) along with
// its resolved (non-portal) schema node. It never allocates.
func Resolve(mem *bufmem.Memory, tree *schema.Tree, rootAddr int, path schema.Path) (Result, error) {
	node, err := schema.ResolvePortal(tree.Root)
	if err != nil {
		return Result{}, err
	}
	addr := rootAddr
	for hop, sel := range path {
		if hop >= MaxHops {
			return Result{}, errTooManyHops()
		}
		if addr == 0 {
			// Nothing materialized from here down: finish the descent
			// against the schema alone, so the caller still learns the
			// terminal node (and its default) behind the vacancy.
			term, err := schema.Descend(node, path[hop:])
			if err != nil {
				return Result{}, err
			}
			return Result{Node: term, Addr: 0}, nil
		}
		var childNode *schema.Node
		addr, childNode, err = step(mem, node, addr, sel)
		if err != nil {
			return Result{}, err
		}
		node, err = schema.ResolvePortal(childNode)
		if err != nil {
			return Result{}, err
		}
	}
	return Result{Node: node, Addr: addr}, nil
}
