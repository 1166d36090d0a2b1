package realize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

const boxSource = `
/**
 * Draws a box.
 * @param {Box} box
 */
function draw(box) {}

/**
 * A rectangle.
 * @typedef {Object} Box
 * @property {number} [left] - distance from the left edge
 * @property {number} [right=0]
 */
`

func TestPrepassTypedefs_ObjectWithOptionalProps(t *testing.T) {
	c := newTestContext(t)
	names := c.PrepassTypedefs(boxSource)
	require.Equal(t, []string{"Box"}, names)

	rt := realizeSrc(t, c, "Box")
	require.Equal(t, KindObject, rt.Kind)
	assert.False(t, rt.MadeUp)

	obj := rt.Obj()
	assert.Equal(t, "Box", obj.Name)
	assert.Equal(t, "A rectangle.", obj.Doc())
	require.Equal(t, []string{"left", "right"}, obj.OwnProps())
	for _, name := range obj.OwnProps() {
		prop, _ := obj.GetProp(name)
		assert.True(t, prop.Optional, name)
		assert.Equal(t, []typegraph.Type{typegraph.Num}, prop.Types(), name)
	}
	left, _ := obj.GetProp("left")
	assert.Equal(t, "distance from the left edge", left.Doc)
	right, _ := obj.GetProp("right")
	assert.Equal(t, "0", right.Default)
	assert.Zero(t, c.PlaceholderCount())
}

func TestPrepassTypedefs_ForwardAndSelfReferences(t *testing.T) {
	c := newTestContext(t)
	c.PrepassTypedefs(`
/**
 * @typedef {Object} Tree
 * @property {TreeNode} root
 */
/**
 * @typedef {Object} TreeNode
 * @property {TreeNode} next
 * @property {TreeNode[]} children
 */`)

	tree, ok := c.Typedef("Tree")
	require.True(t, ok)
	node, ok := c.Typedef("TreeNode")
	require.True(t, ok)

	root, _ := tree.Obj().GetProp("root")
	assert.True(t, root.HasType(node.Obj()), "forward reference resolves to the declared node")

	next, _ := node.Obj().GetProp("next")
	assert.True(t, next.HasType(node.Obj()), "self reference resolves to the same node")

	children, _ := node.Obj().GetProp("children")
	arr, ok := children.PrimaryType().(*typegraph.Arr)
	require.True(t, ok)
	assert.True(t, arr.Elem().HasType(node.Obj()))
	assert.Zero(t, c.PlaceholderCount())
}

func TestPrepassTypedefs_RecordAndAlias(t *testing.T) {
	c := newTestContext(t)
	c.PrepassTypedefs(`
/** @typedef {{x: number, y: number}} Point */
/** @typedef {(string|number)} Id */
/** @typedef {Unknown} Mystery */`)

	point, _ := c.Typedef("Point")
	require.Equal(t, KindObject, point.Kind)
	assert.Equal(t, []string{"x", "y"}, point.Obj().OwnProps())

	id, _ := c.Typedef("Id")
	require.Equal(t, KindUnion, id.Kind)
	assert.True(t, id.Union().HasType(typegraph.Str))
	assert.True(t, id.Union().HasType(typegraph.Num))
	assert.False(t, id.MadeUp)

	mystery, _ := c.Typedef("Mystery")
	assert.True(t, mystery.MadeUp)
	assert.True(t, realizeSrc(t, c, "Mystery").MadeUp)
}

func TestPrepassTypedefs_NestedPropertyPaths(t *testing.T) {
	c := newTestContext(t)
	c.PrepassTypedefs(`
/**
 * @typedef {Object} Order
 * @property {Object} customer
 * @property {string} customer.name
 * @property {string} items[].sku
 * @property {number} items[].qty
 */`)

	order, _ := c.Typedef("Order")
	obj := order.Obj()
	assert.Equal(t, []string{"customer", "items"}, obj.OwnProps())

	customer, _ := obj.GetProp("customer")
	holder := HolderIn(customer, "")
	name, ok := holder.GetProp("name")
	require.True(t, ok)
	assert.True(t, name.HasType(typegraph.Str))
	assert.Len(t, customer.Types(), 1, "dotted path reuses the declared object")

	items, _ := obj.GetProp("items")
	elem := HolderIn(ArrayIn(items).Elem(), "")
	assert.Equal(t, []string{"sku", "qty"}, elem.OwnProps())
}

func TestPrepassTypedefs_Callback(t *testing.T) {
	c := newTestContext(t)
	c.PrepassTypedefs(`
/**
 * Called for each match.
 * @callback Visitor
 * @param {string} key
 * @param {number} [index]
 * @returns {boolean} false to stop
 */`)

	rt, ok := c.Typedef("Visitor")
	require.True(t, ok)
	require.Equal(t, KindFunction, rt.Kind)

	fn := rt.Fn()
	assert.Equal(t, []string{"key", "index?"}, fn.ArgNames)
	assert.True(t, fn.Args[0].HasType(typegraph.Str))
	require.NotNil(t, fn.Ret)
	assert.True(t, fn.Ret.HasType(typegraph.Bool))
	assert.Equal(t, "fn(key: string, index?: number) -> bool", typegraph.Describe(fn))
}

func TestPrepassTypedefs_SkipsMalformed(t *testing.T) {
	c := newTestContext(t)
	names := c.PrepassTypedefs(`
/** @typedef {function(string)} Handler */
/** @typedef {Object} */
/** @typedef {number} Count
 *  @property {string} label
 */
/** not a typedef: @param {string} x */`)

	assert.Equal(t, []string{"Count"}, names)
	_, ok := c.Typedef("Handler")
	assert.False(t, ok)
	assert.Len(t, c.Diagnostics(), 3)
}

func TestPrepassTypedefs_LaterDefinitionWins(t *testing.T) {
	c := newTestContext(t)
	c.PrepassTypedefs(`
/** @typedef {string} Key */
/** @typedef {number} Key */`)

	key, _ := c.Typedef("Key")
	assert.True(t, key.Union().HasType(typegraph.Num))
	assert.False(t, key.Union().HasType(typegraph.Str))
}

func TestDefinePath(t *testing.T) {
	obj := typegraph.NewObj(true, "")

	_, ok := DefinePath(obj, "a..b", "")
	assert.False(t, ok)
	_, ok = DefinePath(obj, "", "")
	assert.False(t, ok)

	p, ok := DefinePath(obj, "a.b.c", "")
	require.True(t, ok)
	p.AddType(typegraph.Num, 0)

	a, _ := obj.GetProp("a")
	b, _ := HolderIn(a, "").GetProp("b")
	c, _ := HolderIn(b, "").GetProp("c")
	assert.Same(t, p, c)
}

func TestPrepassTypedefs_MadeUpThroughForwardAlias(t *testing.T) {
	c := newTestContext(t)
	c.PrepassTypedefs(`
/** @typedef {(Handle|string)} Ref */
/** @typedef {Array.<Ref>} Refs */
/** @typedef {Mystery} Handle */
/** @typedef {(Key|number)} Id */
/** @typedef {string} Key */`)

	for _, name := range []string{"Handle", "Ref", "Refs"} {
		td, ok := c.Typedef(name)
		require.True(t, ok, name)
		assert.True(t, td.MadeUp, "%s reaches a placeholder", name)
	}
	id, _ := c.Typedef("Id")
	assert.False(t, id.MadeUp)

	assert.Equal(t, typegraph.WeightMadeUp, realizeSrc(t, c, "Ref").Weight(false))
}
