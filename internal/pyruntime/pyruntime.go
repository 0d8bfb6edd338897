// Package pyruntime embeds the Python source of the runtime library
// every generated module imports - cbiproto (Message, Enum, the field
// helpers, the wire codec, ServiceStub, the runtime.* service types)
// and cbiproto_runtime.lib.google.protobuf (the vendored well-known
// types GetTypeReference rewrites bare google.protobuf references
// into). Files exposes these sources; plugin.Generate does not add
// them to the CodeGeneratorResponse.
package pyruntime

import (
	"embed"
	"io/fs"
)

//go:embed all:assets
var assets embed.FS

// Files returns every embedded runtime source file as a path (relative
// to the output root, using forward slashes) to file content pair,
// suitable for writing out next to generated code or for bundling into
// a CodeGeneratorResponse alongside it.
func Files() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := fs.WalkDir(assets, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := path[len("assets/"):]
		content, err := fs.ReadFile(assets, path)
		if err != nil {
			return err
		}
		out[rel] = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
