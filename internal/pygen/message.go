package pygen

import (
	"fmt"

	"github.com/cbi-systems/protoc-gen-cbiproto/internal/descriptor"
	"github.com/cbi-systems/protoc-gen-cbiproto/internal/pynames"
)

// MessageRenderer renders one message as a dataclass deriving from
// cbiproto.Message, one attribute line per field in declaration order.
type MessageRenderer struct {
	Message *descriptor.ProtoMessage
	File    *FileRenderer
}

func (r *MessageRenderer) pyName() string {
	return pynames.PythonizeClassName(r.Message.Name())
}

func (r *MessageRenderer) deprecated() bool {
	return r.Message.Proto.GetOptions().GetDeprecated()
}

func (r *MessageRenderer) deprecatedFieldNames() []string {
	var names []string
	for _, f := range r.Message.Fields {
		if f.Proto.GetOptions().GetDeprecated() {
			names = append(names, pynames.PythonizeFieldName(f.Name()))
		}
	}
	return names
}

func (r *MessageRenderer) hasDeprecatedFields() bool { return len(r.deprecatedFieldNames()) > 0 }

// Render produces the full dataclass block for this message.
func (r *MessageRenderer) Render() string {
	f := NewFormatter()
	f.WriteLine("@dataclass(eq=False, repr=False)")
	f.WriteLine(fmt.Sprintf("class %s(cbiproto.Message):", r.pyName()))

	builtins := make(map[string]bool)
	f.BlockWithComment(docstring(r.Message.Comment), func() {
		for _, field := range r.Message.Fields {
			fr := &FieldRenderer{Field: field, File: r.File}
			f.WriteLines(fr.Render(builtins))
		}
		if len(r.Message.Fields) == 0 {
			f.WriteLine("pass")
		}

		deprecated := r.deprecated()
		deprecatedFields := r.deprecatedFieldNames()
		if deprecated || len(deprecatedFields) > 0 {
			r.File.hasDeprecated = true
			f.WriteLine("def __post_init__(self) -> None:")
			f.Block(func() {
				if deprecated {
					f.WriteLine(fmt.Sprintf("warnings.warn('%s is deprecated', DeprecationWarning)", r.pyName()))
				}
				for _, name := range deprecatedFields {
					f.WriteLine(fmt.Sprintf("if self.is_set('%s'):", name))
					f.Block(func() {
						f.WriteLine(fmt.Sprintf("warnings.warn('%s.%s is deprecated', DeprecationWarning)", r.pyName(), name))
					})
				}
			})
		}
	})

	return f.String()
}

// EnumRenderer renders one enum as a class deriving from cbiproto.Enum.
type EnumRenderer struct {
	Enum *descriptor.ProtoEnum
	File *FileRenderer
}

func (r *EnumRenderer) pyName() string { return pynames.PythonizeClassName(r.Enum.Name()) }

// Render produces the full class block for this enum.
func (r *EnumRenderer) Render() string {
	f := NewFormatter()
	f.WriteLine(fmt.Sprintf("class %s(cbiproto.Enum):", r.pyName()))
	f.BlockWithComment(docstring(r.Enum.Comment), func() {
		for _, v := range r.Enum.Values {
			f.WriteLine(fmt.Sprintf("%s = %d", v.Name(), v.Number()))
			if !v.Comment.Empty() {
				f.WriteLines(docstring(v.Comment))
			}
		}
	})
	return f.String()
}
