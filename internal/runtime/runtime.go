package runtime

// The passes emit calls to these helpers but never define them. Generated
// code expects the host to provide them, for example by evaluating "Code"
// before any unit.

const (
	// Loads a module by specifier or numeric id
	Require = "require"

	// Converts a module value into something with a "default" property
	EsmDefault = "require.esmDefault"

	// Copies the enumerable exports of one module onto another
	ExportCopy = "require.exportCopy"

	// Loads a module by id and resolves to its namespace
	DynamicImport = "shadow.esm.dynamic_import"

	// Compact keyword constructors used when hoisting keywords
	Keyword    = "shadow$keyword"
	KeywordFqn = "shadow$keyword_fqn"
)

// Names a pass must never declare
var Reserved = []string{
	Require,
	EsmDefault,
	ExportCopy,
	DynamicImport,
	Keyword,
	KeywordFqn,
}

func IsReserved(name string) bool {
	for _, reserved := range Reserved {
		if name == reserved {
			return true
		}
	}
	return false
}

const Code = `
	var shadow = globalThis.shadow || (globalThis.shadow = {})
	shadow.esm = shadow.esm || {}

	var modules = {}
	var cache = {}

	function require(id) {
		if (cache.hasOwnProperty(id)) return cache[id].exports
		var module = cache[id] = {exports: {}}
		modules[id].call(module.exports, module, module.exports)
		return module.exports
	}

	require.define = function(id, fn) {
		modules[id] = fn
	}

	// A CommonJS module's exported value is its default export
	require.esmDefault = function(mod) {
		return mod && mod.__esModule ? mod : {default: mod}
	}

	// Properties added to "source" after this call are not copied
	require.exportCopy = function(module, source) {
		var target = module.exports
		Object.keys(source).forEach(function(key) {
			if (key !== "default" && key !== "__esModule" && !target.hasOwnProperty(key)) {
				Object.defineProperty(target, key, {
					enumerable: true,
					get: function() { return source[key] }
				})
			}
		})
	}

	shadow.esm.dynamic_import = function(id) {
		return Promise.resolve().then(function() { return require(id) })
	}

	var shadow$keyword = function(name) {
		return new cljs.core.Keyword(null, name, name, cljs.core.hash(name))
	}

	var shadow$keyword_fqn = function(ns, name) {
		var fqn = ns + "/" + name
		return new cljs.core.Keyword(ns, name, fqn, cljs.core.hash(fqn))
	}
`
