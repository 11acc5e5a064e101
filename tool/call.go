package tool

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/strix/pkg/slogx"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

var errorType = reflect.TypeFor[error]()

// Call invokes the tool with the JSON encoded arguments sent by the model and
// renders the result as the string submitted back to the run.
//
// An error returned by the function, a panic inside it, or a missing required
// argument all surface as an error.
func (td Definition) Call(ctx context.Context, arguments string) (output string, err error) {
	if !isFunction(td.Function) {
		return "", fmt.Errorf("tool %s: %w", td.Name, ErrNotAFunction)
	}

	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	if !gjson.Valid(arguments) {
		return "", fmt.Errorf("tool %s: invalid arguments: %s", td.Name, arguments)
	}

	callArgs, err := td.buildArgList(ctx, gjson.Parse(arguments))
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", td.Name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", td.Name, r)
		}
	}()

	val := reflect.ValueOf(td.Function)
	var results []reflect.Value
	if val.Type().IsVariadic() {
		results = val.CallSlice(callArgs)
	} else {
		results = val.Call(callArgs)
	}
	return renderResults(results)
}

func (td Definition) buildArgList(ctx context.Context, args gjson.Result) ([]reflect.Value, error) {
	typ := reflect.TypeOf(td.Function)
	callArgs := make([]reflect.Value, typ.NumIn())
	if typ.NumIn() > 0 && typ.In(0) == contextType {
		callArgs[0] = reflect.ValueOf(&ctx).Elem()
	}

	for _, p := range td.parameters() {
		raw := args.Get(gjson.Escape(p.name))
		if !raw.Exists() || raw.Type == gjson.Null {
			def, hasDefault := td.Defaults[p.name]
			if !hasDefault {
				return nil, fmt.Errorf("%w: %s", ErrMissingArgument, p.name)
			}
			v, err := defaultArgument(def, p.typ)
			if err != nil {
				return nil, fmt.Errorf("default for %s: %w", p.name, err)
			}
			callArgs[p.index] = v
			continue
		}

		v, err := decodeArgument(raw, p.typ)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", p.name, err)
		}
		callArgs[p.index] = v
	}
	return callArgs, nil
}

// decodeArgument converts a JSON value into the parameter type. Because every
// parameter is advertised as a string, a JSON string holding a number, a bool
// or an object is decoded again for non-string parameters.
func decodeArgument(raw gjson.Result, typ reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(typ)
	if typ.Kind() == reflect.String {
		ptr.Elem().SetString(raw.String())
		return ptr.Elem(), nil
	}

	data := raw.Raw
	if raw.Type == gjson.String {
		data = raw.Str
	}
	if err := json.Unmarshal([]byte(data), ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func defaultArgument(def any, typ reflect.Type) (reflect.Value, error) {
	if def == nil {
		return reflect.Zero(typ), nil
	}
	v := reflect.ValueOf(def)
	if v.Type().AssignableTo(typ) {
		return v, nil
	}
	if v.Type().ConvertibleTo(typ) {
		return v.Convert(typ), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", def, typ)
}

func renderResults(results []reflect.Value) (string, error) {
	var value reflect.Value
	for _, res := range results {
		if res.Type() == errorType {
			if !res.IsNil() {
				return "", res.Interface().(error)
			}
			continue
		}
		if !value.IsValid() {
			value = res
		}
	}
	if !value.IsValid() {
		return "", nil
	}
	return renderValue(value.Interface())
}

func renderValue(v any) (string, error) {
	switch vtpe := v.(type) {
	case nil:
		return "", nil
	case string:
		return vtpe, nil
	case []byte:
		return string(vtpe), nil
	case bool:
		return strconv.FormatBool(vtpe), nil
	case time.Time:
		return vtpe.Format(time.RFC3339), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(vtpe).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(vtpe).Uint(), 10), nil
	case float32:
		return strconv.FormatFloat(float64(vtpe), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(vtpe, 'f', -1, 64), nil
	case encoding.TextMarshaler:
		b, err := vtpe.MarshalText()
		if err != nil {
			slog.Error("failed to marshal tool result", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return vtpe.String(), nil
	default:
		b, err := json.Marshal(vtpe)
		if err != nil {
			slog.Error("failed to marshal tool result", slogx.Error(err))
			return "", err
		}
		return string(b), nil
	}
}
