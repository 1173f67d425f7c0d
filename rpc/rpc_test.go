package rpc_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noproto-io/noproto"
	"github.com/noproto-io/noproto/nperrors"
	"github.com/noproto-io/noproto/rpc"
	"github.com/noproto-io/noproto/schema"
)

func apiTree(t *testing.T) *schema.Tree {
	t.Helper()
	tree, err := schema.Parse([]byte(`{
      "type": "struct",
      "fields": [["x", {"type": "u8"}]],
      "api": {
        "name": "accounts.v1",
        "messages": {
          "get": {"id": 1, "request": {"type": "u32"}, "response": {"type": "u32"}},
          "ping": {"id": 2, "request": {"type": "bool"}}
        }
      }
    }`))
	require.NoError(t, err)
	return tree
}

func TestDispatcherResolvesKnownMessage(t *testing.T) {
	tree := apiTree(t)
	d, err := rpc.NewDispatcher(tree)
	require.NoError(t, err)

	env, err := d.Request("get", []byte{0, 0, 0, 7})
	require.NoError(t, err)
	require.Equal(t, rpc.KindRequest, env.Kind)

	msg, err := d.Resolve(env)
	require.NoError(t, err)
	require.Equal(t, "get", msg.Name)
}

func TestDispatcherRejectsWrongAPI(t *testing.T) {
	tree := apiTree(t)
	d, err := rpc.NewDispatcher(tree)
	require.NoError(t, err)
	env, err := d.Request("get", nil)
	require.NoError(t, err)
	env.APIHash ^= 0xFF

	_, err = d.Resolve(env)
	require.ErrorIs(t, err, nperrors.ApiMismatch)
}

func TestDispatcherRejectsUnknownMessage(t *testing.T) {
	tree := apiTree(t)
	d, err := rpc.NewDispatcher(tree)
	require.NoError(t, err)
	env, err := d.Request("get", nil)
	require.NoError(t, err)
	env.MessageID = 99

	_, err = d.Resolve(env)
	require.ErrorIs(t, err, nperrors.UnknownMessage)
}

func TestEnvelopeWriteReadRoundTrip(t *testing.T) {
	tree := apiTree(t)
	d, err := rpc.NewDispatcher(tree)
	require.NoError(t, err)

	req, err := d.Request("ping", []byte{1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rpc.WriteEnvelope(&buf, req))

	got, err := rpc.ReadEnvelope(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestDispatcherRejectsMismatchedVersion(t *testing.T) {
	treeV1, err := schema.Parse([]byte(`{
      "type": "struct", "fields": [["x", {"type": "u8"}]],
      "api": {"name": "Test", "version": "1.0.0",
        "messages": {"get": {"id": 1, "request": {"type": "u8"}}}}
    }`))
	require.NoError(t, err)
	treeV2, err := schema.Parse([]byte(`{
      "type": "struct", "fields": [["x", {"type": "u8"}]],
      "api": {"name": "Test", "version": "2.0.0",
        "messages": {"get": {"id": 1, "request": {"type": "u8"}}}}
    }`))
	require.NoError(t, err)

	d1, err := rpc.NewDispatcher(treeV1)
	require.NoError(t, err)
	d2, err := rpc.NewDispatcher(treeV2)
	require.NoError(t, err)
	require.NotEqual(t, d1.Hash(), d2.Hash(), "same api name, different version, must not collide")

	req, err := d1.Request("get", []byte{1})
	require.NoError(t, err)
	_, err = d2.Resolve(req)
	require.ErrorIs(t, err, nperrors.ApiMismatch)
}

func resultAPITree(t *testing.T) *schema.Tree {
	t.Helper()
	tree, err := schema.Parse([]byte(`{
      "type": "struct",
      "fields": [["x", {"type": "u8"}]],
      "api": {
        "name": "Test",
        "version": "1.0.0",
        "messages": {
          "divide": {
            "id": 1,
            "request": {"type": "u32"},
            "response": {"type": "u32"},
            "response_err": {"type": "string"}
          }
        }
      }
    }`))
	require.NoError(t, err)
	return tree
}

func TestResultResponseRoundTripsOkAndErr(t *testing.T) {
	tree := resultAPITree(t)
	d, err := rpc.NewDispatcher(tree)
	require.NoError(t, err)

	msg, ok := tree.API().MessageByName("divide")
	require.True(t, ok)
	require.True(t, msg.IsResult())

	req, err := d.Request("divide", []byte{0, 0, 0, 6})
	require.NoError(t, err)

	okFactory := noproto.NewFactoryFromTree(schema.TreeForNode(msg.Response))
	okBuf := okFactory.Empty()
	require.NoError(t, okBuf.Set(nil, uint32(3)))
	okResp := d.Response(req, rpc.KindResponseOK, okBuf.Close())

	decodedOK, err := rpc.Decode(okResp.Encode())
	require.NoError(t, err)
	require.Equal(t, rpc.KindResponseOK, decodedOK.Kind)
	reopenedOK, err := okFactory.Open(decodedOK.Body)
	require.NoError(t, err)
	v, present, err := reopenedOK.Get(nil)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, uint32(3), v)

	errFactory := noproto.NewFactoryFromTree(schema.TreeForNode(msg.ResponseErr))
	errBuf := errFactory.Empty()
	require.NoError(t, errBuf.Set(nil, "division by zero"))
	errResp := d.Response(req, rpc.KindResponseErr, errBuf.Close())

	decodedErr, err := rpc.Decode(errResp.Encode())
	require.NoError(t, err)
	require.Equal(t, rpc.KindResponseErr, decodedErr.Kind)
	reopenedErr, err := errFactory.Open(decodedErr.Body)
	require.NoError(t, err)
	msg2, present, err := reopenedErr.Get(nil)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, "division by zero", msg2)
}
