package tool

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrNotAFunction is returned when a tool is created from a value that is not a function.
	ErrNotAFunction = errors.New("provided value is not a function")

	// ErrMissingArgument is returned when a call omits a parameter that has no default value.
	ErrMissingArgument = errors.New("missing required argument")
)

var contextType = reflect.TypeFor[context.Context]()

// Definition represents the definition of a tool the remote assistant can call.
// It includes the tool's name, description, parameter names, default values and the function itself.
type Definition struct {
	Name        string
	Description string

	// Parameters maps positional keys ("param0", "param1", ...) to the names the
	// model sees. Unnamed parameters keep their positional key.
	Parameters map[string]string

	// Defaults holds default values by parameter name. A parameter with a
	// default is optional in the schema and filled in when the model omits it.
	Defaults map[string]any

	// ParameterDescriptions holds per-parameter descriptions by parameter name.
	ParameterDescriptions map[string]string

	Function any
}

type parameter struct {
	index int
	name  string
	typ   reflect.Type
}

// parameters lists the described parameters of the function in order.
// A leading context.Context is injected at call time and is not described.
func (td Definition) parameters() []parameter {
	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return nil
	}

	start := 0
	if typ.NumIn() > 0 && typ.In(0) == contextType {
		start = 1
	}

	params := make([]parameter, 0, typ.NumIn()-start)
	for i := start; i < typ.NumIn(); i++ {
		key := fmt.Sprintf("param%d", i-start)
		name := key
		if p, ok := td.Parameters[key]; ok && p != "" {
			name = p
		}
		params = append(params, parameter{index: i, name: name, typ: typ.In(i)})
	}
	return params
}

// Required reports whether the named parameter must be supplied by the model.
func (td Definition) Required(name string) bool {
	_, hasDefault := td.Defaults[name]
	return !hasDefault
}

// ToNameAndSchema returns the tool name and the JSON schema describing its parameters.
//
// Every parameter is described as a string, whatever its Go type. Call converts
// the string the model sends into the parameter's type.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}

	var required []string
	for _, p := range td.parameters() {
		prop := &jsonschema.Schema{Type: "string"}
		if desc, ok := td.ParameterDescriptions[p.name]; ok {
			prop.Description = desc
		}
		schema.Properties.Set(p.name, prop)
		if td.Required(p.name) {
			required = append(required, p.name)
		}
	}
	if len(required) > 0 {
		schema.Required = required
	}

	return td.Name, schema
}

// Option configures a Definition.
type Option = opts.Option[Definition]

// Must wraps New and panics when New returns an error.
func Must(f any, options ...Option) Definition {
	def, err := New(f, options...)
	if err != nil {
		panic(err)
	}
	return def
}

// New creates a Definition from the provided function and options.
// When no name is configured the Go function name is used.
func New(f any, options ...Option) (Definition, error) {
	if !isFunction(f) {
		return Definition{}, ErrNotAFunction
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = functionName(f)
	}

	def.Function = f
	return def, nil
}

// Name sets the name the model uses to call the tool.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the human readable description of the tool.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function parameters in order, skipping a leading context.Context.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}

// Default gives the named parameter a default value, which makes it optional.
func Default(name string, value any) Option {
	return opts.Type[Definition](func(o *Definition) error {
		if o.Defaults == nil {
			o.Defaults = make(map[string]any)
		}
		o.Defaults[name] = value
		return nil
	})
}

// Describe sets the description of the named parameter.
func Describe(name, description string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		if o.ParameterDescriptions == nil {
			o.ParameterDescriptions = make(map[string]string)
		}
		o.ParameterDescriptions[name] = description
		return nil
	})
}

func isFunction(fn any) bool {
	if fn == nil {
		return false
	}
	return reflect.TypeOf(fn).Kind() == reflect.Func
}

func functionName(fn any) string {
	val := reflect.ValueOf(fn)
	typ := val.Type()

	// named function types keep their type name
	if typ.Name() != "" {
		return typ.String()
	}

	rf := runtime.FuncForPC(val.Pointer())
	if rf == nil {
		return typ.String()
	}
	name := rf.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = strings.TrimSuffix(name[lastDot+1:], "-fm")
	}
	return name
}
