package spawn

import (
	"fmt"
	"strings"
)

// Sink receives raw chunks read from one output stream of a child process,
// in the order they were read.
type Sink func(chunk []byte)

// Options is the second argument to Run. It is one of NoArgs, Arg, ArgList
// or Config; a nil Options behaves like NoArgs.
type Options interface {
	options()
}

// Args is the argument part of a Config: Arg or ArgList.
type Args interface {
	Options
	argv() []string
}

// NoArgs runs the executable without arguments.
type NoArgs struct{}

// Arg runs the executable with a single argument.
type Arg string

// ArgList runs the executable with the given arguments in order.
type ArgList []string

// Config is the full options form.
type Config struct {
	Args Args
	// Quiet disables pass-through of child output to the host streams.
	// Sinks still receive every chunk.
	Quiet  bool
	Stdout Sink
	Stderr Sink
}

func (NoArgs) options()  {}
func (Arg) options()     {}
func (ArgList) options() {}
func (Config) options()  {}

func (a Arg) argv() []string { return []string{string(a)} }

func (l ArgList) argv() []string {
	out := make([]string, len(l))
	copy(out, l)
	return out
}

// Request is the normalized form of Options.
type Request struct {
	Args   []string
	Quiet  bool
	Stdout Sink
	Stderr Sink
}

// Normalize resolves any Options variant into a Request and checks that
// every argument can be handed to the OS.
func Normalize(opts Options) (Request, error) {
	var req Request

	switch o := opts.(type) {
	case nil, NoArgs:
	case Arg:
		req.Args = o.argv()
	case ArgList:
		req.Args = o.argv()
	case Config:
		if o.Args != nil {
			req.Args = o.Args.argv()
		}
		req.Quiet = o.Quiet
		req.Stdout = o.Stdout
		req.Stderr = o.Stderr
	case *Config:
		if o == nil {
			break
		}
		return Normalize(*o)
	default:
		return Request{}, &ValidationError{Field: "options", Reason: fmt.Sprintf("unsupported options type %T", opts)}
	}

	for i, a := range req.Args {
		if strings.IndexByte(a, 0) >= 0 {
			return Request{}, &ValidationError{Field: fmt.Sprintf("args[%d]", i), Reason: "contains a NUL byte"}
		}
	}

	return req, nil
}

// FromAny decodes options that arrived as loosely typed data, such as a
// JSON request body. It accepts nil, a string, a list of strings, or an
// object with "args" and "quiet" keys. Output callbacks cannot be expressed
// this way.
func FromAny(v any) (Options, error) {
	switch t := v.(type) {
	case nil:
		return NoArgs{}, nil
	case string:
		return Arg(t), nil
	case []string:
		return ArgList(t), nil
	case []any:
		list, err := argListFromAny(t)
		if err != nil {
			return nil, err
		}
		return list, nil
	case map[string]any:
		cfg, err := configFromAny(t)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		return nil, &ValidationError{
			Field:  "options",
			Reason: fmt.Sprintf("must be a string, a list of strings or an options object, got %T", v),
		}
	}
}

func argListFromAny(items []any) (ArgList, error) {
	out := make(ArgList, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("args[%d]", i),
				Reason: fmt.Sprintf("must be a string, got %T", item),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func configFromAny(m map[string]any) (Config, error) {
	var cfg Config

	for _, key := range []string{"stdout", "stderr"} {
		if _, ok := m[key]; ok {
			return Config{}, &ValidationError{Field: key, Reason: "output callbacks cannot be decoded"}
		}
	}

	if raw, ok := m["args"]; ok && raw != nil {
		switch a := raw.(type) {
		case string:
			cfg.Args = Arg(a)
		case []string:
			cfg.Args = ArgList(a)
		case []any:
			list, err := argListFromAny(a)
			if err != nil {
				return Config{}, err
			}
			cfg.Args = list
		default:
			return Config{}, &ValidationError{
				Field:  "args",
				Reason: fmt.Sprintf("must be a string or a list of strings, got %T", raw),
			}
		}
	}

	if raw, ok := m["quiet"]; ok && raw != nil {
		q, isBool := raw.(bool)
		if !isBool {
			return Config{}, &ValidationError{Field: "quiet", Reason: fmt.Sprintf("must be a boolean, got %T", raw)}
		}
		cfg.Quiet = q
	}

	return cfg, nil
}
