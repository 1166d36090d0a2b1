package infer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/doctype/services/doctype/ast"
	"github.com/AleutianAI/doctype/services/doctype/binder"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

func seedSource(t *testing.T, src string) (*typegraph.Scope, []binder.Target) {
	t.Helper()
	result, err := ast.NewJavaScriptParser().Parse(context.Background(), []byte(src), "seed.js")
	require.NoError(t, err)
	scope := typegraph.NewScope(nil)
	return scope, NewSeeder(scope, "seed.js").Seed(result.Declarations)
}

func targetNamed(t *testing.T, targets []binder.Target, name string) binder.Target {
	t.Helper()
	for _, tg := range targets {
		if tg.Name == name {
			return tg
		}
	}
	require.Failf(t, "target not found", "%q", name)
	return binder.Target{}
}

func TestSeed_Function(t *testing.T) {
	scope, targets := seedSource(t, `
/** @param {string} name */
function greet(name, punctuation) {}
function undocumented() {}
`)
	require.Len(t, targets, 1)
	tg := targets[0]
	assert.Equal(t, binder.KindFunctionLike, tg.Kind)
	require.NotNil(t, tg.Fn)
	assert.Equal(t, []string{"name", "punctuation"}, tg.Fn.ArgNames)
	assert.Equal(t, "seed.js", tg.Fn.Origin)

	av, ok := scope.Lookup("greet")
	require.True(t, ok)
	assert.Same(t, tg.Value, av)
	assert.True(t, av.HasType(tg.Fn))

	_, ok = scope.Lookup("undocumented")
	assert.True(t, ok, "undocumented declarations are still seeded")
}

func TestSeed_HoistedReferences(t *testing.T) {
	scope, _ := seedSource(t, `
var w = new Widget();
var alias = helper;
function Widget() {}
function helper() {}
`)
	w, _ := scope.Lookup("w")
	inst, ok := w.ObjType().(*typegraph.Obj)
	require.True(t, ok)
	assert.Equal(t, "Widget", inst.Name)
	assert.Equal(t, "Widget", inst.Proto.Constructor().Name)

	alias, _ := scope.Lookup("alias")
	_, ok = alias.ObjType().(*typegraph.Fn)
	assert.True(t, ok, "references propagate the referenced value")
}

func TestSeed_Literals(t *testing.T) {
	tests := []struct {
		src  string
		want typegraph.Type
	}{
		{"/** d */ var s = 'x';", typegraph.Str},
		{"/** d */ var n = 4;", typegraph.Num},
		{"/** d */ var b = false;", typegraph.Bool},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, targets := seedSource(t, tt.src)
			require.Len(t, targets, 1)
			assert.Equal(t, binder.KindSimpleValue, targets[0].Kind)
			assert.True(t, targets[0].Value.HasType(tt.want))
		})
	}
}

func TestSeed_ObjectLiteral(t *testing.T) {
	scope, targets := seedSource(t, `
/** Settings. */
var config = {
  /** Port. */
  port: 80,
  /** Starts. */
  start(cb) {},
  inner: {
    /** Depth. */
    depth: 1
  }
};
`)
	assert.Len(t, targets, 4)

	cfg, _ := scope.Lookup("config")
	obj, ok := cfg.ObjType().(*typegraph.Obj)
	require.True(t, ok)
	assert.Equal(t, []string{"port", "start", "inner"}, obj.OwnProps())

	port := targetNamed(t, targets, "config.port")
	assert.Equal(t, binder.KindObjectProperty, port.Kind)
	assert.True(t, port.Value.Initializer)
	assert.True(t, port.Value.HasType(typegraph.Num))

	start := targetNamed(t, targets, "config.start")
	assert.Equal(t, binder.KindFunctionLike, start.Kind)
	require.NotNil(t, start.Fn)
	assert.Equal(t, []string{"cb"}, start.Fn.ArgNames)

	depth := targetNamed(t, targets, "config.inner.depth")
	assert.True(t, depth.Value.HasType(typegraph.Num))
}

func TestSeed_Class(t *testing.T) {
	scope, targets := seedSource(t, `
/** A widget. */
class Widget {
  /** @param {number} size */
  constructor(size) {}
  /** Renders. */
  render(target) {}
  /** Makes one. */
  static create() {}
}
`)
	require.Len(t, targets, 4)
	cls := targets[0]
	assert.Equal(t, binder.KindClassLike, cls.Kind)
	assert.Equal(t, []string{"size"}, cls.Fn.ArgNames)

	ctor := targets[1]
	assert.Nil(t, ctor.Value)
	assert.Same(t, cls.Fn, ctor.Fn)

	proto := cls.Fn.Prototype()
	render, ok := proto.GetProp("render")
	require.True(t, ok)
	assert.Same(t, render, targets[2].Value)
	assert.Equal(t, []string{"target"}, targets[2].Fn.ArgNames)

	_, ok = cls.Fn.GetProp("create")
	assert.True(t, ok, "static members live on the constructor")

	typ, ok := scope.LookupPath("Widget.prototype")
	require.True(t, ok)
	assert.Same(t, proto, typ)
}

func TestSeed_Assignments(t *testing.T) {
	scope, targets := seedSource(t, `
function Widget() {}
/** Renders. */
Widget.prototype.render = function (target) {};
/** @type {number} */
exports.limit = 10;
/** ignored */
this.skipped = 1;
`)
	require.Len(t, targets, 2)

	proto := targetNamed(t, targets, "Widget.prototype.render")
	assert.Equal(t, binder.KindFunctionLike, proto.Kind)
	w, _ := scope.Lookup("Widget")
	fn := w.ObjType().(*typegraph.Fn)
	render, ok := fn.Prototype().GetProp("render")
	require.True(t, ok)
	assert.Same(t, render, proto.Value)

	limit := targetNamed(t, targets, "exports.limit")
	assert.Equal(t, binder.KindSimpleValue, limit.Kind)
	_, ok = scope.Lookup("exports")
	assert.True(t, ok, "missing roots are defined as globals")
}

func TestSeed_DefineProperty(t *testing.T) {
	scope, targets := seedSource(t, `
var api = {};
/** @type {boolean} */
Object.defineProperty(api, "ready", { value: false });
`)
	require.Len(t, targets, 1)
	assert.Equal(t, binder.KindDefinePropertyCall, targets[0].Kind)
	api, _ := scope.Lookup("api")
	ready, ok := api.ObjType().(typegraph.PropHolder).GetProp("ready")
	require.True(t, ok)
	assert.Same(t, ready, targets[0].Value)
	assert.True(t, ready.HasType(typegraph.Bool))
}

func TestSeed_ExportedFunction(t *testing.T) {
	_, targets := seedSource(t, `
/** Helps. */
export function helper(a) {}
`)
	require.Len(t, targets, 1)
	assert.Equal(t, binder.KindReexport, targets[0].Kind)
	assert.NotNil(t, targets[0].Fn)
}

func TestSeed_NestedScopes(t *testing.T) {
	scope, targets := seedSource(t, `
(function (exports) {
  /** @param {string} name */
  function greet(name) {
    /** Alias. */
    var who = name;
  }
  /** Helper. */
  exports.helper = greet;
})({});
`)
	require.Len(t, targets, 3)
	greet := targetNamed(t, targets, "greet")
	assert.Equal(t, binder.KindFunctionLike, greet.Kind)
	require.NotNil(t, greet.Fn)

	who := targetNamed(t, targets, "who")
	greet.Fn.Args[0].AddType(typegraph.Str, 0)
	assert.True(t, who.Value.HasType(typegraph.Str), "parameters resolve to the function's argument values")

	_, ok := scope.Lookup("greet")
	assert.False(t, ok, "nested declarations stay out of the global scope")
	_, ok = scope.Lookup("exports")
	assert.False(t, ok, "parameters shadow missing globals")

	helper := targetNamed(t, targets, "exports.helper")
	_, ok = helper.Value.ObjType().(*typegraph.Fn)
	assert.True(t, ok)
}
