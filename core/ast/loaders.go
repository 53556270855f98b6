package ast

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var loaders = map[string]api.Loader{
	".js":   api.LoaderJS,
	".mjs":  api.LoaderJS,
	".cjs":  api.LoaderJS,
	".jsx":  api.LoaderJSX,
	".ts":   api.LoaderTS,
	".mts":  api.LoaderTS,
	".cts":  api.LoaderTS,
	".tsx":  api.LoaderTSX,
	".json": api.LoaderJSON,
}

// LoaderFor picks the esbuild loader from the file extension. Unknown
// extensions are treated as JavaScript.
func LoaderFor(path string) api.Loader {
	if l, ok := loaders[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return api.LoaderJS
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseTarget maps a configured target name such as "es2015" to esbuild's
// constant.
func ParseTarget(name string) (api.Target, error) {
	if t, ok := targets[strings.ToLower(name)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown transform target %q (want one of %s)", name, strings.Join(TargetNames(), ", "))
}

func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
