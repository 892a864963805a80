package nfn_test

import (
	"testing"

	"github.com/usi-icn/nfnd/nfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleCall(t *testing.T) {
	ast, err := nfn.Parse(`/call/func("test")`)
	require.NoError(t, err)
	fc, ok := ast.(*nfn.FuncCallNode)
	require.True(t, ok)
	assert.Equal(t, "/call/func", fc.Element)
	require.Equal(t, 1, len(fc.Params))
	str, ok := fc.Params[0].(*nfn.StringNode)
	require.True(t, ok)
	assert.Equal(t, "test", str.Value)
}

func TestParseNestedCallWithDataParam(t *testing.T) {
	ast, err := nfn.Parse(`/call/func("test",/test/data)`)
	require.NoError(t, err)
	fc, ok := ast.(*nfn.FuncCallNode)
	require.True(t, ok)
	require.Equal(t, 2, len(fc.Params))
	name, ok := fc.Params[1].(*nfn.NameNode)
	require.True(t, ok)
	assert.Equal(t, "/test/data", name.Value)
}

func TestParseDoubleCall(t *testing.T) {
	ast, err := nfn.Parse(`/call/func(/test/data,/call/func2(2))`)
	require.NoError(t, err)
	outer, ok := ast.(*nfn.FuncCallNode)
	require.True(t, ok)
	require.Equal(t, 2, len(outer.Params))
	inner, ok := outer.Params[1].(*nfn.FuncCallNode)
	require.True(t, ok)
	assert.Equal(t, "/call/func2", inner.Element)
	i, ok := inner.Params[0].(*nfn.IntNode)
	require.True(t, ok)
	assert.Equal(t, int64(2), i.Value)
}

func TestParseUnterminatedFails(t *testing.T) {
	_, err := nfn.Parse(`/call/func("test`)
	assert.Error(t, err)
}

func TestNfnNameBijection(t *testing.T) {
	name, err := nfn.NfnStrToNetworkName(`/call/func("test")`)
	require.NoError(t, err)
	assert.True(t, nfn.IsNfnInterest(name))

	str, _ := nfn.NetworkNameToNfnStr(name)
	assert.Equal(t, `/call/func("test")`, str)
}
