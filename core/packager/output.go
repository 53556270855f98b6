package packager

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/tristendillon/minibundle/core/logger"
)

type PostOptions struct {
	Minify bool
	Pretty bool
}

// PostProcess optionally minifies or reprints the assembled bundle. With
// neither option set the text is returned untouched.
func PostProcess(text string, opts PostOptions) (string, error) {
	if !opts.Minify && !opts.Pretty {
		return text, nil
	}

	result := api.Transform(text, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ESNext,
		MinifyWhitespace:  opts.Minify,
		MinifySyntax:      opts.Minify,
		MinifyIdentifiers: opts.Minify,
		Sourcefile:        "bundle.js",
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, msg := range result.Errors {
			msgs = append(msgs, msg.Text)
		}
		return "", fmt.Errorf("failed to post-process bundle: %s", strings.Join(msgs, "; "))
	}

	logger.Debug("Packager: Post-processed bundle %d -> %d bytes", len(text), len(result.Code))
	return string(result.Code), nil
}

// Write stores text at dir/file, creating dir when absent. The file is
// written to a temp name and renamed into place.
func Write(fs afero.Fs, dir, file, text string) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	out := filepath.Join(dir, file)

	tmp, err := afero.TempFile(fs, dir, "."+file+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		fs.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	if err := fs.Rename(tmp.Name(), out); err != nil {
		fs.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move bundle into place at %s: %w", out, err)
	}

	logger.Debug("Packager: Wrote %d bytes to %s", len(text), out)
	return out, nil
}
