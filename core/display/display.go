// Package display renders build results and asset graphs for the terminal.
package display

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/tristendillon/minibundle/core/graph"
	"github.com/tristendillon/minibundle/core/models"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

type BuildSummary struct {
	OutputPath string
	Size       int
	Assets     int
	Duration   time.Duration
}

func FormatSize(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// PrintSuccess prints the one-line build summary. Paths are shown relative
// to root when possible.
func PrintSuccess(w io.Writer, root string, s BuildSummary) {
	_, _ = successColor.Fprint(w, "Done!")
	_, _ = fmt.Fprintf(w, " Bundled %d %s into %s (%s) in %s\n",
		s.Assets, plural(s.Assets, "module", "modules"),
		relative(root, s.OutputPath), FormatSize(s.Size),
		s.Duration.Round(time.Millisecond))
}

func PrintError(w io.Writer, err error) {
	_, _ = errorColor.Fprint(w, "Build failed:")
	_, _ = fmt.Fprintf(w, " %v\n", err)
}

// PrintCycles lists each circular import chain, closing the loop on the
// first path.
func PrintCycles(w io.Writer, root string, cycles [][]string) {
	for _, cycle := range cycles {
		parts := make([]string, 0, len(cycle)+1)
		for _, p := range cycle {
			parts = append(parts, relative(root, p))
		}
		if len(cycle) > 0 {
			parts = append(parts, relative(root, cycle[0]))
		}
		_, _ = warnColor.Fprint(w, "Circular import:")
		_, _ = fmt.Fprintf(w, " %s\n", strings.Join(parts, " -> "))
	}
}

// PrintGraph renders one row per asset in id order.
func PrintGraph(w io.Writer, root string, g *graph.Graph) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Module", "State", "Dependencies"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	rows := make([][]string, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		asset, ok := g.Asset(models.AssetID(i))
		if !ok {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", asset.ID),
			relative(root, asset.Path),
			asset.State.String(),
			formatDependencies(asset.Dependencies),
		})
	}

	table.AppendBulk(rows)
	table.Render()
}

func formatDependencies(deps map[string]models.AssetID) string {
	if len(deps) == 0 {
		return "-"
	}
	specifiers := make([]string, 0, len(deps))
	for s := range deps {
		specifiers = append(specifiers, s)
	}
	sort.Strings(specifiers)

	parts := make([]string, 0, len(specifiers))
	for _, s := range specifiers {
		parts = append(parts, fmt.Sprintf("%s->#%d", s, deps[s]))
	}
	return strings.Join(parts, ", ")
}

func relative(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
