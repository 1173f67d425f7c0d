package schema

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/primitive"
)

// Parse builds a Tree from the textual (JSON) schema form, including
// anything Marshal produces.
func Parse(data []byte) (*Tree, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, xerrors.Errorf("schema: parsing schema json: %v: %w", err, nperrors.SchemaInvalid)
	}
	t := &Tree{}
	pending := &pendingPortals{}
	root, err := buildNode(t, &doc.jsonNode, "", nil, pending)
	if err != nil {
		return nil, err
	}
	t.Root = root
	if err := pending.resolve(); err != nil {
		return nil, err
	}
	if doc.API != nil {
		api, err := buildAPI(t, doc.API)
		if err != nil {
			return nil, err
		}
		t.hasRPC = true
		t.api = api
	}
	return t, nil
}

// jsonDoc is the top-level document: a schema node plus an optional
// sibling "api" section.
type jsonDoc struct {
	jsonNode
	API *jsonAPI `json:"api,omitempty"`
}

type jsonAPI struct {
	Name     string                 `json:"name"`
	Version  string                 `json:"version,omitempty"`
	Messages map[string]jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID       uint16    `json:"id"`
	Request  *jsonNode `json:"request"`
	Response *jsonNode `json:"response,omitempty"`
	// ResponseErr, when set alongside Response, makes this message's
	// framing result(T, E) instead of option(T): Response is T, ResponseErr
	// is E, and the envelope's kind (response_ok/response_err) picks which
	// one the body was written under.
	ResponseErr *jsonNode `json:"response_err,omitempty"`
}

// jsonNode mirrors every possible shape a schema node can take; only the
// fields relevant to Type are populated by an encoder, and only those are
// consulted by buildNode.
type jsonNode struct {
	Type string `json:"type"`

	Fields []jsonField `json:"fields,omitempty"`

	Of    *jsonNode `json:"of,omitempty"`
	Value *jsonNode `json:"value,omitempty"`

	Values []*jsonNode `json:"values,omitempty"`
	Sorted bool        `json:"sorted,omitempty"`

	Choices []string `json:"choices,omitempty"`

	To string `json:"to,omitempty"`

	Size      int  `json:"size,omitempty"`
	Uppercase bool `json:"uppercase,omitempty"`
	Lowercase bool `json:"lowercase,omitempty"`

	Exp int `json:"exp,omitempty"`

	Precision int `json:"precision,omitempty"`

	Default json.RawMessage `json:"default,omitempty"`
}

// jsonField is one [name, node] pair of a struct's "fields" array.
type jsonField struct {
	Name string
	Node *jsonNode
}

func (f *jsonField) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return xerrors.Errorf("schema: struct field entry must be [name, node]: %w", nperrors.SchemaInvalid)
	}
	if err := json.Unmarshal(raw[0], &f.Name); err != nil {
		return err
	}
	f.Node = &jsonNode{}
	return json.Unmarshal(raw[1], f.Node)
}

type pendingPortal struct {
	node      *Node
	ancestors []*Node
}

type pendingPortals struct {
	items []pendingPortal
}

func (p *pendingPortals) add(n *Node, ancestors []*Node) {
	cp := make([]*Node, len(ancestors))
	copy(cp, ancestors)
	p.items = append(p.items, pendingPortal{node: n, ancestors: cp})
}

// resolve binds every collected portal to its target. Each portal's
// path is navigated from the root of the sub-schema it was declared in
// (its outermost recorded ancestor), which is the main tree root for a
// plain schema and the message's own request/response root for a node
// declared under an "api" section.
func (p *pendingPortals) resolve() error {
	for _, pp := range p.items {
		if len(pp.ancestors) == 0 {
			return xerrors.Errorf("schema: portal %q has no ancestors to resolve against: %w", pp.node.PortalTo, nperrors.PortalUnresolved)
		}
		target, err := navigateSchemaPath(pp.ancestors[0], pp.node.PortalTo)
		if err != nil {
			return xerrors.Errorf("schema: portal %q: %w", pp.node.PortalTo, err)
		}
		found := false
		for _, a := range pp.ancestors {
			if a == target {
				found = true
				break
			}
		}
		if !found {
			return xerrors.Errorf("schema: portal %q does not resolve to an ancestor: %w", pp.node.PortalTo, nperrors.PortalUnresolved)
		}
		pp.node.portalTarget = target
	}
	return nil
}

func buildNode(t *Tree, j *jsonNode, declPath string, ancestors []*Node, pending *pendingPortals) (*Node, error) {
	n := &Node{declPath: declPath}
	switch j.Type {
	case "bool":
		n.Kind = KindBool
	case "i8":
		n.Kind = KindI8
	case "i16":
		n.Kind = KindI16
	case "i32":
		n.Kind = KindI32
	case "i64":
		n.Kind = KindI64
	case "u8":
		n.Kind = KindU8
	case "u16":
		n.Kind = KindU16
	case "u32":
		n.Kind = KindU32
	case "u64":
		n.Kind = KindU64
	case "f32":
		n.Kind = KindF32
	case "f64":
		n.Kind = KindF64
	case "dec":
		n.Kind = KindDec
		n.Exp = int8(j.Exp)
	case "string":
		n.Kind = KindString
		n.FixedSize = j.Size
		n.Uppercase = j.Uppercase
		n.Lowercase = j.Lowercase
	case "bytes":
		n.Kind = KindBytes
		n.FixedSize = j.Size
	case "uuid":
		n.Kind = KindUUID
	case "ulid":
		n.Kind = KindULID
	case "date":
		n.Kind = KindDate
	case "geo":
		n.Kind = KindGeo
		n.GeoSize = j.Precision
		if n.GeoSize == 0 {
			n.GeoSize = primitive.Geo8
		}
	case "option":
		n.Kind = KindOption
		if len(j.Choices) == 0 || len(j.Choices) > MaxItems {
			return nil, xerrors.Errorf("schema: option must declare 1-%d choices: %w", MaxItems, nperrors.SchemaInvalid)
		}
		seen := make(map[string]bool, len(j.Choices))
		for _, c := range j.Choices {
			if len(c) > MaxNameLen {
				return nil, xerrors.Errorf("schema: option choice %q exceeds %d bytes: %w", c, MaxNameLen, nperrors.SchemaInvalid)
			}
			if seen[c] {
				return nil, xerrors.Errorf("schema: duplicate option choice %q: %w", c, nperrors.SchemaInvalid)
			}
			seen[c] = true
		}
		n.Choices = j.Choices
	case "struct":
		n.Kind = KindStruct
		if len(j.Fields) > MaxItems {
			return nil, xerrors.Errorf("schema: struct exceeds %d fields: %w", MaxItems, nperrors.SchemaInvalid)
		}
		t.register(n)
		childAncestors := append(append([]*Node{}, ancestors...), n)
		seenFields := make(map[string]bool, len(j.Fields))
		for _, f := range j.Fields {
			if len(f.Name) > MaxNameLen {
				return nil, xerrors.Errorf("schema: field name %q exceeds %d bytes: %w", f.Name, MaxNameLen, nperrors.SchemaInvalid)
			}
			if seenFields[f.Name] {
				return nil, xerrors.Errorf("schema: duplicate field name %q: %w", f.Name, nperrors.SchemaInvalid)
			}
			seenFields[f.Name] = true
			child, err := buildNode(t, f.Node, declPath+"/"+f.Name, childAncestors, pending)
			if err != nil {
				return nil, err
			}
			n.FieldNames = append(n.FieldNames, f.Name)
			n.Children = append(n.Children, child)
		}
		return finishNode(t, n, j, ancestors, pending)
	case "tuple":
		n.Kind = KindTuple
		n.Sorted = j.Sorted
		if len(j.Values) > MaxItems {
			return nil, xerrors.Errorf("schema: tuple exceeds %d values: %w", MaxItems, nperrors.SchemaInvalid)
		}
		t.register(n)
		childAncestors := append(append([]*Node{}, ancestors...), n)
		for i, v := range j.Values {
			child, err := buildNode(t, v, declPath+"/"+strconv.Itoa(i), childAncestors, pending)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		if n.Sorted {
			for _, c := range n.Children {
				if !IsSortableSubtree(c) {
					return nil, xerrors.Errorf("schema: sorted tuple contains a non-sortable value: %w", nperrors.SchemaInvalid)
				}
			}
		}
		return finishNode(t, n, j, ancestors, pending)
	case "list":
		n.Kind = KindList
		if j.Of == nil {
			return nil, xerrors.Errorf("schema: list requires \"of\": %w", nperrors.SchemaInvalid)
		}
		t.register(n)
		child, err := buildNode(t, j.Of, declPath+"/of", append(append([]*Node{}, ancestors...), n), pending)
		if err != nil {
			return nil, err
		}
		n.Children = []*Node{child}
		return finishNode(t, n, j, ancestors, pending)
	case "map":
		n.Kind = KindMap
		if j.Value == nil {
			return nil, xerrors.Errorf("schema: map requires \"value\": %w", nperrors.SchemaInvalid)
		}
		t.register(n)
		child, err := buildNode(t, j.Value, declPath+"/value", append(append([]*Node{}, ancestors...), n), pending)
		if err != nil {
			return nil, err
		}
		n.Children = []*Node{child}
		return finishNode(t, n, j, ancestors, pending)
	case "portal":
		n.Kind = KindPortal
		n.PortalTo = j.To
		t.register(n)
		pending.add(n, ancestors)
		return n, nil
	default:
		return nil, xerrors.Errorf("schema: unknown node type %q: %w", j.Type, nperrors.SchemaInvalid)
	}
	t.register(n)
	return finishNode(t, n, j, ancestors, pending)
}

// finishNode decodes a declared default, if any.
func finishNode(t *Tree, n *Node, j *jsonNode, ancestors []*Node, pending *pendingPortals) (*Node, error) {
	if len(j.Default) > 0 {
		def, err := decodeJSONDefault(n, j.Default)
		if err != nil {
			return nil, err
		}
		n.Default = def
	}
	return n, nil
}

// navigateSchemaPath walks a JSON-pointer-like path (struct field names,
// "of", "value", numeric tuple indices) from root.
func navigateSchemaPath(root *Node, path string) (*Node, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return root, nil
	}
	cur := root
	for _, seg := range strings.Split(path, "/") {
		switch cur.Kind {
		case KindStruct:
			idx := cur.FieldIndex(seg)
			if idx < 0 {
				return nil, nperrors.PortalUnresolved
			}
			cur = cur.Children[idx]
		case KindTuple:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur.Children) {
				return nil, nperrors.PortalUnresolved
			}
			cur = cur.Children[i]
		case KindList:
			if seg != "of" {
				return nil, nperrors.PortalUnresolved
			}
			cur = cur.Children[0]
		case KindMap:
			if seg != "value" {
				return nil, nperrors.PortalUnresolved
			}
			cur = cur.Children[0]
		default:
			return nil, nperrors.PortalUnresolved
		}
	}
	return cur, nil
}

func buildAPI(t *Tree, j *jsonAPI) (APIDef, error) {
	api := APIDef{
		Name:     j.Name,
		Version:  j.Version,
		Messages: make(map[uint16]*Message, len(j.Messages)),
		byName:   make(map[string]*Message, len(j.Messages)),
	}
	for name, jm := range j.Messages {
		if _, dup := api.Messages[jm.ID]; dup {
			return APIDef{}, xerrors.Errorf("schema: duplicate message id %d: %w", jm.ID, nperrors.SchemaInvalid)
		}
		apiPending := &pendingPortals{}
		req, err := buildNode(t, jm.Request, "$api/"+name+"/request", nil, apiPending)
		if err != nil {
			return APIDef{}, err
		}
		var resp *Node
		if jm.Response != nil {
			resp, err = buildNode(t, jm.Response, "$api/"+name+"/response", nil, apiPending)
			if err != nil {
				return APIDef{}, err
			}
		}
		var respErr *Node
		if jm.ResponseErr != nil {
			respErr, err = buildNode(t, jm.ResponseErr, "$api/"+name+"/response_err", nil, apiPending)
			if err != nil {
				return APIDef{}, err
			}
		}
		if err := apiPending.resolve(); err != nil {
			return APIDef{}, err
		}
		m := &Message{Name: name, ID: jm.ID, Request: req, Response: resp, ResponseErr: respErr}
		api.Messages[jm.ID] = m
		api.byName[name] = m
	}
	return api, nil
}
