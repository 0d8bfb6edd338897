package pygen

import (
	"fmt"

	"github.com/cbi-systems/protoc-gen-cbiproto/internal/descriptor"
	"github.com/cbi-systems/protoc-gen-cbiproto/internal/pynames"
	"github.com/cbi-systems/protoc-gen-cbiproto/internal/wire"
)

// ServiceRenderer renders one RPC service as a pair of Python classes:
// a client stub the generated code hands callers, and a server base
// class whose methods raise UNIMPLEMENTED until a real implementation
// overrides them.
type ServiceRenderer struct {
	Service *descriptor.ProtoService
	File    *FileRenderer
}

func (r *ServiceRenderer) pyName() string { return pynames.PythonizeClassName(r.Service.Name()) }

// RenderClient produces the cbiproto.ServiceStub subclass.
func (r *ServiceRenderer) RenderClient() string {
	f := NewFormatter()
	f.WriteLine(fmt.Sprintf("class %s(cbiproto.ServiceStub):", r.pyName()))
	f.BlockWithComment(docstring(r.Service.Comment), func() {
		for _, m := range r.Service.Methods {
			mr := &MethodRenderer{Method: m, Service: r, File: r.File}
			f.WriteLines(mr.RenderClient())
		}
		if len(r.Service.Methods) == 0 {
			f.WriteLine("pass")
		}
	})
	return f.String()
}

// RenderServer produces the ServiceBase subclass plus its
// __mapping__ override used to dispatch incoming RPCs by route.
func (r *ServiceRenderer) RenderServer() string {
	r.File.Types.FromImport("cbiproto.runtime.server", "ServiceBase")
	r.File.Types.Typing("Dict")

	f := NewFormatter()
	f.WriteLine(fmt.Sprintf("class %sBase(ServiceBase):", r.pyName()))
	f.BlockWithComment(docstring(r.Service.Comment), func() {
		for _, m := range r.Service.Methods {
			mr := &MethodRenderer{Method: m, Service: r, File: r.File}
			f.WriteLines(mr.RenderServer())
		}

		f.WriteLine("def __mapping__(self) -> Dict[str, cbiproto.runtime.Handler]:")
		f.Block(func() {
			f.WriteLine("return {")
			f.Block(func() {
				for _, m := range r.Service.Methods {
					mr := &MethodRenderer{Method: m, Service: r, File: r.File}
					f.WriteLine(fmt.Sprintf(
						"'%s': cbiproto.runtime.Handler(self.%s, cbiproto.runtime.Cardinality.%s, %s, %s),",
						mr.route(), mr.pyName(), mr.cardinality(), mr.inputMessageType(), mr.outputMessageType(),
					))
				}
			})
			f.WriteLine("}")
		})
	})
	return f.String()
}

// MethodRenderer renders a single RPC method as a client-stub method
// and a server-base method.
type MethodRenderer struct {
	Method  *descriptor.ProtoMethod
	Service *ServiceRenderer
	File    *FileRenderer
}

func (r *MethodRenderer) pyName() string { return pynames.PythonizeMethodName(r.Method.Name()) }

func (r *MethodRenderer) route() string {
	pkg := r.Method.Parent.File.PackageName
	prefix := ""
	if pkg != "" {
		prefix = pkg + "."
	}
	return fmt.Sprintf("/%s%s/%s", prefix, r.Service.Service.Name(), r.Method.Name())
}

func (r *MethodRenderer) inputMessageType() string {
	return r.File.Types.GetTypeReference("."+r.Method.InputType.Qualname, true)
}

func (r *MethodRenderer) outputMessageType() string {
	return r.File.Types.GetTypeReference("."+r.Method.OutputType.Qualname, false)
}

func (r *MethodRenderer) cardinality() wire.Cardinality {
	return wire.CardinalityOf(r.Method.ClientStreaming(), r.Method.ServerStreaming())
}

func (r *MethodRenderer) clientMethodName() string {
	switch r.cardinality() {
	case wire.UnaryStream:
		return "_unary_stream"
	case wire.StreamUnary:
		return "_stream_unary"
	case wire.StreamStream:
		return "_stream_stream"
	default:
		return "_unary_unary"
	}
}

func (r *MethodRenderer) isAsync() bool { return r.File.Mode == "async" }

func (r *MethodRenderer) iteratorName() string {
	if r.isAsync() {
		return r.File.Types.Typing("AsyncIterable")
	}
	return r.File.Types.Typing("Iterable")
}

func (r *MethodRenderer) signatureTypes() (input, output string) {
	input = r.inputMessageType()
	output = r.outputMessageType()
	if r.Method.ClientStreaming() {
		input = fmt.Sprintf("%s[%s]", r.iteratorName(), input)
	}
	if r.Method.ServerStreaming() {
		output = fmt.Sprintf("%s[%s]", r.iteratorName(), output)
	}
	return input, output
}

// RenderClient produces the client stub method: it forwards to
// whichever of the four cardinality-specific transport helpers the
// runtime's ServiceStub base class exposes.
func (r *MethodRenderer) RenderClient() string {
	input, output := r.signatureTypes()
	optType := r.File.Types.Typing("Optional")

	f := NewFormatter()
	def := fmt.Sprintf(
		"def %s(self, request: %s, *, timeout: %s[float] = None, metadata: %s[\"MetadataLike\"] = None) -> %s:",
		r.pyName(), input, optType, optType, output,
	)
	if r.isAsync() {
		def = "async " + def
	}
	r.File.Types.FromImport("cbiproto.runtime.types", "MetadataLike")

	f.WriteLine(def)
	f.BlockWithComment(docstring(r.Method.Comment), func() {
		f.WriteLine(fmt.Sprintf(
			`return self.%s("%s", request, %s, timeout=timeout, metadata=metadata)`,
			r.clientMethodName(), r.route(), r.outputMessageType(),
		))
	})
	return f.String()
}

// RenderServer produces the server base method, which every real
// servicer implementation is expected to override.
func (r *MethodRenderer) RenderServer() string {
	input, output := r.signatureTypes()
	r.File.Types.Plain("import grpc")

	f := NewFormatter()
	def := fmt.Sprintf("def %s(self, request: %s, context: grpc.ServicerContext) -> %s:", r.pyName(), input, output)
	if r.isAsync() {
		def = "async " + def
	}
	f.WriteLine(def)
	f.BlockWithComment(docstring(r.Method.Comment), func() {
		f.WriteLine("raise cbiproto.runtime.GRPCError(cbiproto.runtime.Status.UNIMPLEMENTED)")
	})
	return f.String()
}
