// The protoc-gen-cbiproto binary is a protoc plugin that generates
// Python dataclasses and gRPC service stubs from .proto files. Run it
// by putting it on PATH under this name and invoking
//
//	protoc --cbiproto_out=<opts>:<output_directory> input.proto
//
// protoc communicates with plugins over stdin/stdout using an
// unprefixed CodeGeneratorRequest/CodeGeneratorResponse pair; this
// program should never be run directly.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/cbi-systems/protoc-gen-cbiproto/internal/plugin"
)

func main() {
	log := newLogger()
	if err := run(log); err != nil {
		fmt.Fprintf(os.Stderr, "protoc-gen-cbiproto: %v\n", err)
		os.Exit(1)
	}
}

// newLogger sends diagnostics to stderr (stdout is reserved for the
// CodeGeneratorResponse protoc reads) at a level controlled by
// CBIPROTO_LOG, defaulting to warnings only since protoc normally
// runs this silently.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	level := logrus.WarnLevel
	if raw := os.Getenv("CBIPROTO_LOG"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
	return log
}

func run(log *logrus.Logger) error {
	if len(os.Args) > 1 {
		return fmt.Errorf("unknown argument %q (this program should be run by protoc, not directly)", os.Args[1])
	}

	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading request from stdin: %w", err)
	}

	if dumpPath := os.Getenv("CBIPROTO_DUMP"); dumpPath != "" {
		if err := os.WriteFile(dumpPath, in, 0o644); err != nil {
			log.WithError(err).WithField("path", dumpPath).Warn("failed to write CBIPROTO_DUMP")
		} else {
			log.WithField("path", dumpPath).Debug("wrote raw CodeGeneratorRequest bytes")
		}
	}

	req := &pluginpb.CodeGeneratorRequest{}
	if err := proto.Unmarshal(in, req); err != nil {
		return fmt.Errorf("unmarshalling CodeGeneratorRequest: %w", err)
	}

	resp, err := plugin.Generate(req, log)
	if err != nil {
		// A generation failure is reported to protoc through the
		// response's error field, not a nonzero exit - that's how
		// protoc surfaces "bad input" versus "plugin crashed" to the
		// user running the protoc invocation.
		resp = &pluginpb.CodeGeneratorResponse{Error: proto.String(err.Error())}
	}

	out, err := proto.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshalling CodeGeneratorResponse: %w", err)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return fmt.Errorf("writing response to stdout: %w", err)
	}
	return nil
}
