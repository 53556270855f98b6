// Package packager serializes a finished asset graph into a single script
// whose runtime loader reproduces the graph's require semantics.
package packager

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tristendillon/minibundle/core/graph"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
	"github.com/tristendillon/minibundle/core/template_engine"
)

var ErrEmptyGraph = errors.New("cannot package an empty graph")

type Runtime string

const (
	// RuntimeCached executes each module at most once and fails loudly on an
	// unmapped specifier.
	RuntimeCached Runtime = "cached"
	// RuntimeLegacy re-executes a module on every require.
	RuntimeLegacy Runtime = "legacy"
)

type Options struct {
	Runtime Runtime
}

type moduleEntry struct {
	ID      models.AssetID
	Code    string
	Mapping string
}

type runtimeData struct {
	EntryID models.AssetID
	Modules []moduleEntry
}

var engine = template_engine.NewTemplateEngine()

// Assemble renders every processed asset, in ascending id order, into the
// selected runtime loader. Fails if any asset is still pending.
func Assemble(g *graph.Graph, opts Options) (string, error) {
	assets, err := g.Processed()
	if err != nil {
		return "", err
	}
	if len(assets) == 0 {
		return "", ErrEmptyGraph
	}

	data := runtimeData{
		EntryID: assets[0].ID,
		Modules: make([]moduleEntry, 0, len(assets)),
	}
	for _, asset := range assets {
		mapping, err := MappingJSON(asset.Dependencies)
		if err != nil {
			return "", fmt.Errorf("failed to serialize mapping for %s: %w", asset.Path, err)
		}
		data.Modules = append(data.Modules, moduleEntry{
			ID:      asset.ID,
			Code:    strings.TrimRight(asset.Code, "\r\n"),
			Mapping: mapping,
		})
	}

	ref, err := runtimeTemplate(opts.Runtime)
	if err != nil {
		return "", err
	}

	text, err := engine.Render(ref, data)
	if err != nil {
		return "", err
	}

	logger.Debug("Packager: Assembled %d modules with the %s runtime", len(assets), ref.Path)
	return text, nil
}

func runtimeTemplate(r Runtime) (template_engine.TemplateRef, error) {
	switch r {
	case RuntimeCached, "":
		return template_engine.RuntimeCached, nil
	case RuntimeLegacy:
		return template_engine.RuntimeLegacy, nil
	}
	return template_engine.TemplateRef{}, fmt.Errorf("unknown runtime %q", r)
}

// MappingJSON renders a dependency map as a compact JSON object with sorted
// keys. Specifiers are emitted verbatim, without HTML escaping.
func MappingJSON(deps map[string]models.AssetID) (string, error) {
	if deps == nil {
		deps = map[string]models.AssetID{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(deps); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
