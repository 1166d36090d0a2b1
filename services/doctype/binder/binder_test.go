package binder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/doctype/services/doctype/realize"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

func newTestBinder(t *testing.T, cfg Config) (*Binder, *realize.Context) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cx := realize.NewContext(typegraph.NewScope(nil), realize.WithLogger(logger))
	cx.Origin = "test.js"
	return New(cx, cfg, WithLogger(logger)), cx
}

func newFn(name string, args ...string) *typegraph.Fn {
	fn := typegraph.NewFn(name, args)
	fn.Origin = "test.js"
	return fn
}

func TestBind_OptionalParamIsRenamed(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	fn := newFn("on", "eventName")

	res := b.Bind(context.Background(), Target{
		Kind:     KindFunctionLike,
		Name:     "on",
		Fn:       fn,
		Comments: []string{"/** @param {string} [eventName] */"},
	})

	assert.Equal(t, []string{"eventName?"}, fn.ArgNames)
	assert.Equal(t, []string{"eventName"}, res.Renamed)
	assert.True(t, fn.Args[0].HasType(typegraph.Str))
	assert.Equal(t, typegraph.WeightDefault, fn.Args[0].Weight(typegraph.Str))
	assert.Nil(t, fn.Ret, "no return contribution")
	require.Len(t, res.Propagations, 1)
	assert.Equal(t, "arg:eventName?", res.Propagations[0].Slot)
	assert.Equal(t, "fn(eventName?: string)", typegraph.Describe(fn))
}

func TestBind_RebindingIsIdempotent(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	fn := newFn("on", "eventName")
	target := Target{Kind: KindFunctionLike, Fn: fn, Comments: []string{"/** @param {string} [eventName] */"}}

	b.Bind(context.Background(), target)
	res := b.Bind(context.Background(), target)

	assert.Equal(t, []string{"eventName?"}, fn.ArgNames)
	assert.Empty(t, res.Renamed)
	assert.Len(t, fn.Args[0].Types(), 1)
}

func TestBind_OptionalUnionParam(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	fn := newFn("f", "x")

	b.Bind(context.Background(), Target{
		Kind:     KindFunctionLike,
		Fn:       fn,
		Comments: []string{"/** @param {(string|number)} [x] */"},
	})

	assert.Equal(t, "x?", fn.ArgNames[0])
	assert.True(t, fn.Args[0].HasType(typegraph.Str))
	assert.True(t, fn.Args[0].HasType(typegraph.Num))
}

func TestBind_Weights(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		typ    string
		weight int
	}{
		{"resolved", Config{}, "number", typegraph.WeightDefault},
		{"placeholder", Config{}, "Missing", typegraph.WeightMadeUp},
		{"strong resolved", Config{Strong: true}, "number", typegraph.WeightStrong},
		{"strong placeholder", Config{Strong: true}, "Missing", typegraph.WeightStrong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBinder(t, tt.cfg)
			fn := newFn("f", "x")
			res := b.Bind(context.Background(), Target{
				Kind:     KindFunctionLike,
				Fn:       fn,
				Comments: []string{"/** @param {" + tt.typ + "} x */"},
			})
			require.Len(t, res.Propagations, 1)
			assert.Equal(t, tt.weight, res.Propagations[0].Weight)
			assert.Equal(t, tt.weight, fn.Args[0].Weight(fn.Args[0].Types()[0]))
		})
	}
}

func TestBind_MalformedTagDoesNotStopBinding(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	fn := newFn("f", "x", "y")

	res := b.Bind(context.Background(), Target{
		Kind: KindFunctionLike,
		Fn:   fn,
		Comments: []string{`/**
 * @param {} x
 * @param {number} y
 * @returns {string}
 */`},
	})

	assert.True(t, fn.Args[0].IsEmpty())
	assert.True(t, fn.Args[1].HasType(typegraph.Num))
	require.NotNil(t, fn.Ret)
	assert.True(t, fn.Ret.HasType(typegraph.Str))
	assert.Len(t, res.Diagnostics, 1)
}

func TestCollect_DottedParams(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	sig := b.Collect([]string{`/**
 * @param {Object} opts
 * @param {number} opts.size - in pixels
 * @param {string} [opts.label]
 * @param {Object[]} items
 * @param {string} items[].id
 * @param {number} cfg.depth
 */`})

	assert.Equal(t, []string{"opts", "items", "cfg.depth"}, sig.Order)

	opts := sig.Args["opts"].Obj()
	require.NotNil(t, opts)
	size, ok := opts.GetProp("size")
	require.True(t, ok)
	assert.True(t, size.HasType(typegraph.Num))
	assert.Equal(t, "in pixels", size.Doc)
	label, ok := opts.GetProp("label")
	require.True(t, ok)
	assert.True(t, label.Optional)

	elem := realize.HolderIn(sig.Args["items"].Arr().Elem(), "")
	id, ok := elem.GetProp("id")
	require.True(t, ok)
	assert.True(t, id.HasType(typegraph.Str))

	assert.Contains(t, sig.Args, "cfg.depth", "unmatched dotted name stays a flat parameter")
}

func TestCollect_OptionalBaseStillRedirects(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	sig := b.Collect([]string{"/** @param {Object} [opts]\n * @param {boolean} opts.flag */"})

	assert.Equal(t, []string{"opts?"}, sig.Order)
	_, ok := sig.Args["opts?"].Obj().GetProp("flag")
	assert.True(t, ok)
}

func TestBind_Receiver(t *testing.T) {
	t.Run("class makes self an instance", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{})
		fn := newFn("Widget")
		b.Bind(context.Background(), Target{
			Kind:     KindFunctionLike,
			Fn:       fn,
			Comments: []string{"/** @constructor */"},
		})
		assert.True(t, fn.Self.HasType(typegraph.Instance(fn.Prototype())))
	})

	t.Run("this names the receiver", func(t *testing.T) {
		b, cx := newTestBinder(t, Config{})
		owner := typegraph.NewFn("Owner", nil)
		cx.Scope.Define("Owner").AddType(owner, 0)
		fn := newFn("handler")
		b.Bind(context.Background(), Target{
			Kind:     KindFunctionLike,
			Fn:       fn,
			Comments: []string{"/** @this {Owner} */"},
		})
		assert.True(t, fn.Self.HasType(typegraph.Instance(owner.Prototype())))
	})
}

func TestBind_ValueTargets(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		comment string
		fn      bool
		want    typegraph.Type
	}{
		{"type on variable", KindSimpleValue, "/** @type {number} */", false, typegraph.Num},
		{"returns on value without function", KindSimpleValue, "/** @returns {string} */", false, typegraph.Str},
		{"define property", KindDefinePropertyCall, "/** @type {boolean} */", false, typegraph.Bool},
		{"object property", KindObjectProperty, "/** @type {string} */", false, typegraph.Str},
		{"type on function without signature tags", KindFunctionLike, "/** @type {number} */", true, typegraph.Num},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBinder(t, Config{})
			value := typegraph.NewAVal()
			target := Target{Kind: tt.kind, Value: value, Comments: []string{tt.comment}}
			if tt.fn {
				target.Fn = newFn("f")
			}
			res := b.Bind(context.Background(), target)
			assert.True(t, value.HasType(tt.want))
			require.Len(t, res.Propagations, 1)
			assert.Equal(t, "value", res.Propagations[0].Slot)
		})
	}
}

func TestBind_ReturnsOnFunctionDoesNotTouchValue(t *testing.T) {
	b, _ := newTestBinder(t, Config{})
	value := typegraph.NewAVal()
	fn := newFn("f")
	value.AddType(fn, 0)

	b.Bind(context.Background(), Target{
		Kind:     KindFunctionLike,
		Value:    value,
		Fn:       fn,
		Comments: []string{"/** @returns {string} */"},
	})

	assert.Len(t, value.Types(), 1)
	require.NotNil(t, fn.Ret)
	assert.True(t, fn.Ret.HasType(typegraph.Str))
}

func TestBind_Documentation(t *testing.T) {
	comments := []string{
		"/** Old description. */",
		"/**\n * Fresh description.\n *\n * More detail.\n * @type {number}\n */",
		"/*   */",
	}

	t.Run("summary only", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{SummaryOnly: true})
		value := typegraph.NewAVal()
		res := b.Bind(context.Background(), Target{Kind: KindSimpleValue, Value: value, Comments: comments})
		assert.Equal(t, "Fresh description.", value.Doc)
		assert.Equal(t, "Fresh description.", res.Doc)
	})

	t.Run("zero config keeps the full text", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{})
		value := typegraph.NewAVal()
		res := b.Bind(context.Background(), Target{Kind: KindSimpleValue, Value: value, Comments: comments})
		assert.Equal(t, "Fresh description.\n\nMore detail.\n@type {number}", value.Doc)
		assert.Equal(t, value.Doc, res.Doc)
	})

	t.Run("tags only leaves no summary", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{SummaryOnly: true})
		value := typegraph.NewAVal()
		res := b.Bind(context.Background(), Target{Kind: KindSimpleValue, Value: value, Comments: []string{"/** @type {number} */"}})
		assert.Empty(t, value.Doc)
		assert.Empty(t, res.Doc)
	})
}

func TestBind_DocumentationOnTypes(t *testing.T) {
	t.Run("explicit type", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{})
		fn := newFn("f")
		b.Bind(context.Background(), Target{Kind: KindFunctionLike, Fn: fn, Type: fn, Comments: []string{"/** Does f. */"}})
		assert.Equal(t, "Does f.", fn.Doc())
	})

	t.Run("owned object of the value", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{})
		obj := typegraph.NewObj(true, "")
		obj.Origin = "test.js"
		value := typegraph.NewAVal()
		value.AddType(obj, 0)
		b.Bind(context.Background(), Target{Kind: KindSimpleValue, Value: value, Comments: []string{"/** Settings. */"}})
		assert.Equal(t, "Settings.", obj.Doc())
	})

	t.Run("foreign or documented objects are left alone", func(t *testing.T) {
		b, _ := newTestBinder(t, Config{})
		foreign := typegraph.NewObj(true, "")
		foreign.Origin = "other.js"
		documented := typegraph.NewObj(true, "")
		documented.Origin = "test.js"
		documented.SetDoc("kept")

		v1 := typegraph.NewAVal()
		v1.AddType(foreign, 0)
		v2 := typegraph.NewAVal()
		v2.AddType(documented, 0)
		b.Bind(context.Background(), Target{Kind: KindSimpleValue, Value: v1, Comments: []string{"/** New. */"}})
		b.Bind(context.Background(), Target{Kind: KindSimpleValue, Value: v2, Comments: []string{"/** New. */"}})

		assert.Empty(t, foreign.Doc())
		assert.Equal(t, "kept", documented.Doc())
		assert.Equal(t, "New.", v1.Doc)
	})
}

func TestBind_UsesTypedefs(t *testing.T) {
	b, cx := newTestBinder(t, Config{})
	cx.PrepassTypedefs(`/**
 * @typedef {Object} Options
 * @property {number} [size]
 */`)
	fn := newFn("render", "opts")

	res := b.Bind(context.Background(), Target{
		Kind:     KindFunctionLike,
		Fn:       fn,
		Comments: []string{"/** @param {Options} [opts] */"},
	})

	td, _ := cx.Typedef("Options")
	assert.True(t, fn.Args[0].HasType(td.Obj()))
	assert.Equal(t, "fn(opts?: Options)", typegraph.Describe(fn))
	assert.False(t, res.Propagations[0].MadeUp)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "function", KindFunctionLike.String())
	assert.Equal(t, "define_property", KindDefinePropertyCall.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestCollect_DottedParamExtendsSharedTypedef(t *testing.T) {
	b, cx := newTestBinder(t, Config{})
	cx.PrepassTypedefs("/** @typedef {Object} Box\n * @property {number} left */")

	sig := b.Collect([]string{"/** @param {Box} b\n * @param {number} b.top */"})

	box, ok := cx.Typedef("Box")
	require.True(t, ok)
	assert.Same(t, box.Obj(), sig.Args["b"].Obj())
	top, ok := box.Obj().GetProp("top")
	require.True(t, ok, "b.top is defined on the Box typedef itself")
	assert.True(t, top.HasType(typegraph.Num))

	other := b.Collect([]string{"/** @param {Box} other */"})
	_, ok = other.Args["other"].Obj().GetProp("top")
	assert.True(t, ok, "later uses of Box see the added property")
}
