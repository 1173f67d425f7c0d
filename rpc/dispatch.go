package rpc

import (
	"bufio"
	"io"

	"golang.org/x/xerrors"

	"github.com/noproto-io/noproto/internal/frame"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/schema"
)

// Dispatcher resolves envelopes against one schema's declared API,
// rejecting anything addressed to a different API or an undeclared
// message before a caller ever touches the envelope body.
type Dispatcher struct {
	tree *schema.Tree
	hash uint64
}

// NewDispatcher builds a Dispatcher for tree, which must declare an API
// section.
func NewDispatcher(tree *schema.Tree) (*Dispatcher, error) {
	if !tree.HasAPI() {
		return nil, xerrors.Errorf("rpc: schema declares no api section: %w", nperrors.SchemaInvalid)
	}
	return &Dispatcher{tree: tree, hash: APIHash(tree.API().Name, tree.API().Version)}, nil
}

// Hash is this dispatcher's api_hash, stamped into every envelope it sends.
func (d *Dispatcher) Hash() uint64 { return d.hash }

// Resolve validates e against this dispatcher's API and returns the
// declared Message e.MessageID addresses.
func (d *Dispatcher) Resolve(e Envelope) (*schema.Message, error) {
	if e.APIHash != d.hash {
		return nil, xerrors.Errorf("rpc: envelope api_hash %x does not match %x: %w", e.APIHash, d.hash, nperrors.ApiMismatch)
	}
	msg, ok := d.tree.API().MessageByID(e.MessageID)
	if !ok {
		return nil, xerrors.Errorf("rpc: unknown message id %d: %w", e.MessageID, nperrors.UnknownMessage)
	}
	return msg, nil
}

// Request builds a request envelope for message name.
func (d *Dispatcher) Request(name string, body []byte) (Envelope, error) {
	msg, ok := d.tree.API().MessageByName(name)
	if !ok {
		return Envelope{}, xerrors.Errorf("rpc: schema declares no message %q: %w", name, nperrors.UnknownMessage)
	}
	return Envelope{APIHash: d.hash, MessageID: msg.ID, Kind: KindRequest, Body: body}, nil
}

// Response builds a response envelope for an already-resolved request.
func (d *Dispatcher) Response(req Envelope, kind Kind, body []byte) Envelope {
	return Envelope{APIHash: d.hash, MessageID: req.MessageID, Kind: kind, Body: body}
}

// WriteEnvelope length-delimits and writes e.
func WriteEnvelope(w io.Writer, e Envelope) error {
	return frame.Write(w, e.Encode())
}

// ReadEnvelope reads and decodes one length-delimited envelope.
func ReadEnvelope(r *bufio.Reader) (Envelope, error) {
	b, err := frame.Read(r)
	if err != nil {
		return Envelope{}, err
	}
	return Decode(b)
}
