package resolver

import "strings"

// nodeBuiltinModules lists the top-level Node.js core modules. A bare
// specifier naming one of these is only bundleable when a package of the same
// name is installed in node_modules.
var nodeBuiltinModules = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// isNodeBuiltin reports whether name is a core module or a subpath of one
// ("fs/promises"), with or without the "node:" prefix.
func isNodeBuiltin(name string) bool {
	name = strings.TrimPrefix(name, "node:")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return nodeBuiltinModules[name]
}
