package plugin

import "strings"

// Options is the parsed form of CodeGeneratorRequest.parameter, a
// comma-separated list of "key" and "key=value" pairs passed via
// protoc's --cbiproto_opt flag (or the "opt" half of a combined
// --cbiproto_out=opt1,opt2:path argument).
//
// Keys are case-insensitive. A bare key with no "=" is recorded as the
// boolean flag true in Extra, mirroring the original plugin's
// pydantic-model parsing: any option the plugin doesn't specifically
// recognize is preserved rather than rejected, so callers can pass
// forward-looking flags without a plugin rebuild.
type Options struct {
	Mode          string // "sync" or "async"
	IncludeGoogle bool
	Extra         map[string]bool
}

// ParseOptions parses a request's raw parameter string. An empty
// string yields the default Options (sync mode, google.protobuf
// packages excluded).
func ParseOptions(parameter string) Options {
	opts := Options{Mode: "sync", Extra: make(map[string]bool)}
	if parameter == "" {
		return opts
	}

	for _, item := range strings.Split(parameter, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}

		key, value, hasValue := strings.Cut(item, "=")
		if !hasValue {
			switch key {
			case "include_google":
				opts.IncludeGoogle = true
			case "":
			default:
				opts.Extra[key] = true
			}
			continue
		}

		switch key {
		case "mode":
			opts.Mode = value
		case "include_google":
			opts.IncludeGoogle = value == "true" || value == "1"
		default:
			opts.Extra[key] = true
		}
	}

	return opts
}
