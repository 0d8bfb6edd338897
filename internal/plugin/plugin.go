// Package plugin drives end-to-end code generation: it turns a
// CodeGeneratorRequest into a CodeGeneratorResponse by building a
// descriptor.Set, grouping the files it names by proto package (one
// rendered Python module per package, matching the layout every
// cbiproto-generated tree uses), and handing each group to pygen.
package plugin

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/cbi-systems/protoc-gen-cbiproto/internal/descriptor"
	"github.com/cbi-systems/protoc-gen-cbiproto/internal/pygen"
)

// supportedFeatures is advertised on every response so protoc knows it
// may hand this plugin proto3 optional fields. The original plugin
// this one is patterned on never added FEATURE_SUPPORTS_EDITIONS, so
// neither does this one.
const supportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)

// packageGroup collects every generated file that shares one proto
// package, the unit pygen renders as a single Python module -
// the Go equivalent of the original plugin's OutputTemplate.
type packageGroup struct {
	name  string
	files []*descriptor.ProtoFile
}

// Generate runs the full pipeline for one CodeGeneratorRequest.
func Generate(req *pluginpb.CodeGeneratorRequest, log *logrus.Logger) (*pluginpb.CodeGeneratorResponse, error) {
	opts := ParseOptions(req.GetParameter())
	log.WithField("options", fmt.Sprintf("%+v", opts)).Debug("parsed plugin options")

	set, err := descriptor.Build(req, log)
	if err != nil {
		return nil, fmt.Errorf("building descriptor set: %w", err)
	}

	groups := groupByPackage(set, opts)

	resp := &pluginpb.CodeGeneratorResponse{
		SupportedFeatures: proto.Uint64(supportedFeatures),
	}

	outputPaths := make(map[string]bool, len(groups))
	for _, g := range groups {
		path := pygen.PackageOutputPath(g.name)
		outputPaths[path] = true

		content, err := renderPackage(g, opts)
		if err != nil {
			return nil, fmt.Errorf("rendering package %q: %w", g.name, err)
		}
		resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
			Name:    proto.String(path),
			Content: proto.String(content),
		})
	}

	for _, initPath := range ancestorInitPaths(outputPaths) {
		resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
			Name: proto.String(initPath),
		})
		log.WithField("path", initPath).Debug("writing package placeholder")
	}

	sort.Slice(resp.File, func(i, j int) bool {
		return resp.File[i].GetName() < resp.File[j].GetName()
	})

	for _, f := range resp.File {
		log.WithField("path", f.GetName()).Info("writing generated file")
	}

	return resp, nil
}

// groupByPackage collects every file protoc asked to generate into
// one packageGroup per dotted proto package, skipping google.protobuf
// inputs unless the caller opted in, and skipping any file that
// declares no messages, enums or services of its own (nothing for a
// generated module to say about it).
func groupByPackage(set *descriptor.Set, opts Options) []*packageGroup {
	index := make(map[string]*packageGroup)
	var order []string

	for _, f := range set.Files {
		if !f.Generate {
			continue
		}
		if f.PackageName == "google.protobuf" && !opts.IncludeGoogle {
			continue
		}
		if len(f.Messages) == 0 && len(f.Enums) == 0 && len(f.Services) == 0 {
			continue
		}

		g, ok := index[f.PackageName]
		if !ok {
			g = &packageGroup{name: f.PackageName}
			index[f.PackageName] = g
			order = append(order, f.PackageName)
		}
		g.files = append(g.files, f)
	}

	groups := make([]*packageGroup, len(order))
	for i, name := range order {
		groups[i] = index[name]
	}
	return groups
}

// renderPackage renders one package group's messages, enums and
// services into the text of its generated Python module. Emission
// order within the group is fixed: enums, then messages sorted by
// ascending dotted-name length so outer types precede their nested
// types, then every service's client stub, then every service's
// server base - matching pygen.FileRenderer.Render's own section order
// across every file that contributed to this package.
func renderPackage(g *packageGroup, opts Options) (string, error) {
	fr := pygen.NewFileRenderer(g.name, opts.Mode)

	var enums []*descriptor.ProtoEnum
	var messages []*descriptor.ProtoMessage
	var services []*descriptor.ProtoService
	for _, f := range g.files {
		enums = append(enums, f.Enums...)
		messages = append(messages, f.Messages...)
		services = append(services, f.Services...)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return len(messages[i].Qualname) < len(messages[j].Qualname)
	})

	for _, e := range enums {
		fr.RenderEnum(e)
	}
	for _, m := range messages {
		fr.RenderMessage(m)
	}
	for _, s := range services {
		fr.RenderService(s)
	}

	return fr.Render(), nil
}

// ancestorInitPaths computes every "__init__.py" placeholder needed so
// that each generated package's parent directories are themselves
// importable Python packages, skipping any that coincide with a real
// output file.
func ancestorInitPaths(outputPaths map[string]bool) []string {
	needed := make(map[string]bool)
	for path := range outputPaths {
		for _, p := range pygen.AncestorInitPaths(path, outputPaths) {
			needed[p] = true
		}
	}
	paths := make([]string, 0, len(needed))
	for p := range needed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
