package proto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kdlang/karelc/pkg/proto"
)

func TestRegistryDefineAndLookup(t *testing.T) {
	r := proto.NewRegistry()
	p := &proto.Prototype{Name: "main", File: "t.src", Line: 1}
	require.NoError(t, r.Define(p))

	got, ok := r.Lookup("main")
	require.True(t, ok)
	require.Same(t, p, got)
}

func TestRegistryRejectsRedefinition(t *testing.T) {
	r := proto.NewRegistry()
	require.NoError(t, r.Define(&proto.Prototype{Name: "main", File: "t.src", Line: 1}))
	err := r.Define(&proto.Prototype{Name: "main", File: "t.src", Line: 5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redefined")
}

func TestRegistryAllPreservesFileOrder(t *testing.T) {
	r := proto.NewRegistry()
	require.NoError(t, r.Define(&proto.Prototype{Name: "c"}))
	require.NoError(t, r.Define(&proto.Prototype{Name: "a"}))
	require.NoError(t, r.Define(&proto.Prototype{Name: "b"}))

	var names []string
	for _, p := range r.All() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"c", "a", "b"}, names)
}

func TestCacheGetInsertLen(t *testing.T) {
	c := proto.NewCache()
	key := proto.NewKey("wrap", nil, []string{"wall"})
	require.Equal(t, 0, c.Len())

	_, ok := c.Get(key)
	require.False(t, ok)

	inst := &proto.Instance{Key: key, Pending: true}
	c.Insert(key, inst)
	require.Equal(t, 1, c.Len())

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Same(t, inst, got)
}

func TestKeyIsDeterministicAcrossCalls(t *testing.T) {
	k1 := proto.NewKey("wrap", nil, []string{"wall", "north"})
	k2 := proto.NewKey("wrap", nil, []string{"wall", "north"})
	require.Equal(t, k1, k2)
}

func TestKeyDiffersOnDifferentValues(t *testing.T) {
	k1 := proto.NewKey("wrap", nil, []string{"wall"})
	k2 := proto.NewKey("wrap", nil, []string{"flag"})
	require.NotEqual(t, k1, k2)
}

func TestKeyDistinguishesValueBoundaries(t *testing.T) {
	// "ab","c" and "a","bc" must hash differently despite concatenating
	// to the same raw string, since hashValues length-prefixes each value.
	k1 := proto.NewKey("f", nil, []string{"ab", "c"})
	k2 := proto.NewKey("f", nil, []string{"a", "bc"})
	require.NotEqual(t, k1, k2)
}

func TestKeyIncludesContinuationName(t *testing.T) {
	base := &proto.Instance{BaseName: "cont"}
	cont := &proto.Callable{Instance: base, SegmentIndex: 0}

	k1 := proto.NewKey("f", nil, []string{"x"})
	k2 := proto.NewKey("f", cont, []string{"x"})
	require.NotEqual(t, k1, k2)
}

func TestSegmentNameDerivation(t *testing.T) {
	inst := &proto.Instance{BaseName: "OVER_WALL__a1b2"}
	require.Equal(t, "OVER_WALL__a1b2", inst.SegmentName(0))
	require.Equal(t, "OVER_WALL__a1b2__s1", inst.SegmentName(1))
	require.Equal(t, "OVER_WALL__a1b2__s2", inst.SegmentName(2))
}

func TestCallableNameNilSafe(t *testing.T) {
	var c *proto.Callable
	require.Equal(t, "", c.Name())

	c = &proto.Callable{}
	require.Equal(t, "", c.Name())
}

func TestPrototypeHasTemplateParams(t *testing.T) {
	p := &proto.Prototype{Name: "f", Params: []proto.Param{{Name: "dir", IsTemplate: true}}}
	require.True(t, p.HasTemplateParams())

	p2 := &proto.Prototype{Name: "g", Params: []proto.Param{{Name: "x", IsTemplate: false}}}
	require.False(t, p2.HasTemplateParams())
}
