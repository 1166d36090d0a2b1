package ast

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseJS(t *testing.T, src string) *ParseResult {
	t.Helper()
	result, err := NewJavaScriptParser().Parse(context.Background(), []byte(src), "test.js")
	require.NoError(t, err)
	return result
}

func findDecl(t *testing.T, r *ParseResult, path string) *Declaration {
	t.Helper()
	var found *Declaration
	for _, d := range r.Declarations {
		d.Walk(func(x *Declaration) {
			if found == nil && x.Path == path {
				found = x
			}
		})
	}
	require.NotNil(t, found, "declaration %q not found", path)
	return found
}

func TestJavaScriptParser_FunctionDeclaration(t *testing.T) {
	r := parseJS(t, `
/** Registers a handler.
 * @param {string} [eventName]
 */
function on(eventName, handler = null, ...rest) {}
`)
	require.Len(t, r.Declarations, 1)
	d := r.Declarations[0]
	assert.Equal(t, DeclFunction, d.Kind)
	assert.Equal(t, "on", d.Name)
	assert.Equal(t, []string{"eventName", "handler", "rest"}, d.Params)
	require.Len(t, d.Comments, 1)
	assert.True(t, strings.HasPrefix(d.Comments[0], "/**"))
	assert.True(t, d.IsFunction())
	assert.Equal(t, 5, d.StartLine)
	assert.Len(t, r.Hash, 64)
}

func TestJavaScriptParser_CommentsAreOrderedAndMerged(t *testing.T) {
	r := parseJS(t, `
/** first */
// line one
// line two
/* last */
var x = 1;
`)
	d := findDecl(t, r, "x")
	assert.Equal(t, []string{"/** first */", " line one\n line two", "/* last */"}, d.Comments)
	assert.Equal(t, ValueNumber, d.Value)
}

func TestJavaScriptParser_LineCommentsCanBeExcluded(t *testing.T) {
	p := NewJavaScriptParser(WithJSLineComments(false))
	r, err := p.Parse(context.Background(), []byte("// note\n/** doc */\nvar x;\n"), "a.js")
	require.NoError(t, err)
	assert.Equal(t, []string{"/** doc */"}, r.Declarations[0].Comments)
}

func TestJavaScriptParser_Variables(t *testing.T) {
	r := parseJS(t, `
/** doc */
const a = "s", b = 2;
let fn = (x, y) => x;
var single = x => x;
var obj = new Widget();
var alias = ns.Thing;
var nothing = undefined;
var flag = true;
var list = [];
`)
	a := findDecl(t, r, "a")
	assert.Equal(t, ValueString, a.Value)
	assert.Len(t, a.Comments, 1)
	b := findDecl(t, r, "b")
	assert.Empty(t, b.Comments, "comments belong to the first declarator")

	fn := findDecl(t, r, "fn")
	assert.Equal(t, ValueFunction, fn.Value)
	assert.Equal(t, []string{"x", "y"}, fn.Params)
	assert.Equal(t, []string{"x"}, findDecl(t, r, "single").Params)

	obj := findDecl(t, r, "obj")
	assert.Equal(t, ValueNew, obj.Value)
	assert.Equal(t, "Widget", obj.ValueRef)

	alias := findDecl(t, r, "alias")
	assert.Equal(t, ValueRef, alias.Value)
	assert.Equal(t, "ns.Thing", alias.ValueRef)

	assert.Equal(t, ValueNull, findDecl(t, r, "nothing").Value)
	assert.Equal(t, ValueBool, findDecl(t, r, "flag").Value)
	assert.Equal(t, ValueArray, findDecl(t, r, "list").Value)
}

func TestJavaScriptParser_ObjectLiteral(t *testing.T) {
	r := parseJS(t, `
var config = {
  /** Port to bind. */
  port: 8080,
  /** @type {string} */
  'host': "localhost",
  nested: { depth: 1 },
  /** Starts it. */
  start(cb) {},
  name
};
`)
	cfg := findDecl(t, r, "config")
	assert.Equal(t, ValueObject, cfg.Value)
	require.Len(t, cfg.Members, 5)

	port := findDecl(t, r, "config.port")
	assert.Equal(t, DeclProperty, port.Kind)
	assert.Equal(t, "config", port.Owner)
	assert.Equal(t, []string{"/** Port to bind. */"}, port.Comments)

	host := findDecl(t, r, "config.host")
	assert.Equal(t, ValueString, host.Value)
	assert.Len(t, host.Comments, 1)

	depth := findDecl(t, r, "config.nested.depth")
	assert.Equal(t, "config.nested", depth.Owner)

	start := findDecl(t, r, "config.start")
	assert.True(t, start.IsFunction())
	assert.Equal(t, []string{"cb"}, start.Params)

	name := findDecl(t, r, "config.name")
	assert.Equal(t, ValueRef, name.Value)
}

func TestJavaScriptParser_Class(t *testing.T) {
	r := parseJS(t, `
/** A widget. */
class Widget {
  /** @param {number} size */
  constructor(size) {}
  /** @returns {string} */
  render() {}
  static create() {}
  /** @type {number} */
  count = 0;
}
`)
	cls := findDecl(t, r, "Widget")
	assert.Equal(t, DeclClass, cls.Kind)
	assert.Equal(t, []string{"size"}, cls.Params)
	assert.Len(t, cls.Comments, 1)
	require.Len(t, cls.Members, 4)

	ctor := cls.Members[0]
	assert.Equal(t, "constructor", ctor.Name)
	assert.Equal(t, "Widget", ctor.Path)

	render := findDecl(t, r, "Widget.prototype.render")
	assert.Equal(t, DeclMethod, render.Kind)
	assert.Len(t, render.Comments, 1)

	create := findDecl(t, r, "Widget.create")
	assert.True(t, create.Static)

	count := findDecl(t, r, "Widget.prototype.count")
	assert.Equal(t, DeclField, count.Kind)
	assert.Equal(t, ValueNumber, count.Value)
}

func TestJavaScriptParser_Assignments(t *testing.T) {
	r := parseJS(t, `
/** Renders. */
Widget.prototype.render = function (target) {};
/** @type {number} */
exports.limit = 10;
this.skipped = 1;
`)
	render := findDecl(t, r, "Widget.prototype.render")
	assert.Equal(t, DeclAssignment, render.Kind)
	assert.Equal(t, "render", render.Name)
	assert.Equal(t, "Widget.prototype", render.Owner)
	assert.Equal(t, []string{"target"}, render.Params)
	assert.Len(t, render.Comments, 1)

	limit := findDecl(t, r, "exports.limit")
	assert.Equal(t, ValueNumber, limit.Value)
}

func TestJavaScriptParser_DefineProperty(t *testing.T) {
	r := parseJS(t, `
/** @type {boolean} */
Object.defineProperty(api, "ready", { value: false });
Object.defineProperty(api, name, {});
`)
	require.Len(t, r.Declarations, 1)
	d := r.Declarations[0]
	assert.Equal(t, DeclDefineProperty, d.Kind)
	assert.Equal(t, "ready", d.Name)
	assert.Equal(t, "api", d.Owner)
	assert.Equal(t, "api.ready", d.Path)
	assert.Equal(t, ValueBool, d.Value)
	assert.Len(t, d.Comments, 1)
}

func TestJavaScriptParser_Exports(t *testing.T) {
	r := parseJS(t, `
/** Exported helper. */
export function helper(a) {}
export const VERSION = "1";
`)
	helper := findDecl(t, r, "helper")
	assert.True(t, helper.Exported)
	assert.Equal(t, []string{"/** Exported helper. */"}, helper.Comments)
	assert.True(t, findDecl(t, r, "VERSION").Exported)
}

func TestJavaScriptParser_Errors(t *testing.T) {
	_, err := NewJavaScriptParser(WithJSMaxFileSize(4)).Parse(context.Background(), []byte("var x = 1;"), "a.js")
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	_, err = NewJavaScriptParser().Parse(context.Background(), []byte{0xff, 0xfe}, "a.js")
	assert.True(t, errors.Is(err, ErrInvalidContent))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewJavaScriptParser().Parse(ctx, []byte("var x;"), "a.js")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestJavaScriptParser_SyntaxErrorsAreTolerated(t *testing.T) {
	r := parseJS(t, "function ok() {}\nvar = ;\n")
	assert.NotEmpty(t, r.Errors)
	findDecl(t, r, "ok")
}

func TestGenerateID_Stable(t *testing.T) {
	assert.Equal(t, GenerateID("a.js", 1, "x"), GenerateID("a.js", 1, "x"))
	assert.NotEqual(t, GenerateID("a.js", 1, "x"), GenerateID("a.js", 2, "x"))
	assert.Len(t, GenerateID("a.js", 1, "x"), 16)
}

func TestJavaScriptParser_FunctionBodies(t *testing.T) {
	r := parseJS(t, `
function outer(opts) {
  /** @param {string} name */
  function inner(name) {}
  if (opts) {
    /** @type {number} */
    var count = 0;
  }
  return function () {
    /** Deep. */
    var deep = 1;
  };
}
`)
	outer := findDecl(t, r, "outer")
	require.Len(t, outer.Body, 3)
	assert.Equal(t, []string{"name"}, findDecl(t, r, "inner").Params)
	assert.Len(t, findDecl(t, r, "count").Comments, 1)

	closure := outer.Body[2]
	assert.Equal(t, DeclClosure, closure.Kind)
	require.Len(t, closure.Body, 1)
	assert.Equal(t, "deep", closure.Body[0].Name)
}

func TestJavaScriptParser_IIFE(t *testing.T) {
	r := parseJS(t, `
(function () {
  /** @param {string} name */
  function greet(name) {}
})();
var api = (function (exports) {
  /** Version. */
  exports.version = "1";
  return exports;
})({});
`)
	require.Len(t, r.Declarations, 3)
	iife := r.Declarations[0]
	assert.Equal(t, DeclClosure, iife.Kind)
	assert.True(t, iife.IsFunction())
	require.Len(t, iife.Body, 1)
	assert.Equal(t, "greet", iife.Body[0].Name)
	assert.Len(t, iife.Body[0].Comments, 1)

	assert.Equal(t, "api", r.Declarations[1].Name)
	factory := r.Declarations[2]
	assert.Equal(t, DeclClosure, factory.Kind)
	assert.Equal(t, []string{"exports"}, factory.Params)
	assert.Equal(t, "exports.version", factory.Body[0].Path)
}

func TestJavaScriptParser_EmptyClosuresAreDropped(t *testing.T) {
	r := parseJS(t, "setTimeout(function () { run(); }, 10);\n")
	assert.Empty(t, r.Declarations)
}
