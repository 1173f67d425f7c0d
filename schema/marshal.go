package schema

import "encoding/json"

// Marshal renders a Tree back to its textual (JSON) form; Factory.Marshal
// exposes it. The output is not the original JSON byte-for-byte. It
// carries no declared defaults and no "api" section, so parsing it back
// yields the same node kinds and attributes without those.
func Marshal(t *Tree) ([]byte, error) {
	return json.MarshalIndent(nodeToJSON(t.Root), "", "  ")
}

func nodeToJSON(n *Node) map[string]any {
	m := map[string]any{"type": n.Kind.String()}
	switch n.Kind {
	case KindDec:
		m["exp"] = n.Exp
	case KindString, KindBytes:
		if n.FixedSize > 0 {
			m["size"] = n.FixedSize
		}
		if n.Uppercase {
			m["uppercase"] = true
		}
		if n.Lowercase {
			m["lowercase"] = true
		}
	case KindGeo:
		m["precision"] = n.GeoSize
	case KindOption:
		m["choices"] = n.Choices
	case KindStruct:
		fields := make([][2]any, len(n.Children))
		for i, c := range n.Children {
			fields[i] = [2]any{n.FieldNames[i], nodeToJSON(c)}
		}
		m["fields"] = fields
	case KindTuple:
		if n.Sorted {
			m["sorted"] = true
		}
		values := make([]map[string]any, len(n.Children))
		for i, c := range n.Children {
			values[i] = nodeToJSON(c)
		}
		m["values"] = values
	case KindList:
		m["of"] = nodeToJSON(n.Children[0])
	case KindMap:
		m["value"] = nodeToJSON(n.Children[0])
	case KindPortal:
		m["to"] = n.PortalTo
	}
	return m
}
