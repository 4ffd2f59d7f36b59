package server

import (
	"errors"
	"fmt"
	"math"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/compiler"
	"github.com/chazu/oops/vm"
)

// Messages on the wire are google.protobuf.Struct values, so the service
// needs no generated code and speaks Connect JSON as well as binary.

type fields map[string]*structpb.Value

func (f fields) msg() *structpb.Struct {
	return &structpb.Struct{Fields: f}
}

func response(f fields) *connect.Response[structpb.Struct] {
	return connect.NewResponse(f.msg())
}

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }
func boolean(b bool) *structpb.Value { return structpb.NewBoolValue(b) }
func number(n float64) *structpb.Value { return structpb.NewNumberValue(n) }
func object(f fields) *structpb.Value { return structpb.NewStructValue(f.msg()) }
func list(vs ...*structpb.Value) *structpb.Value {
	return structpb.NewListValue(&structpb.ListValue{Values: vs})
}

func strList(items []string) *structpb.Value {
	vs := make([]*structpb.Value, len(items))
	for i, s := range items {
		vs[i] = str(s)
	}
	return list(vs...)
}

// stringField reads a string field, returning "" when absent.
func stringField(msg *structpb.Struct, name string) string {
	return msg.GetFields()[name].GetStringValue()
}

// requireString reads a required string field.
func requireString(msg *structpb.Struct, name string) (string, error) {
	s := stringField(msg, name)
	if s == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is required", name))
	}
	return s, nil
}

// stringListField reads a list of strings, skipping non-string entries.
func stringListField(msg *structpb.Struct, name string) []string {
	var result []string
	for _, v := range msg.GetFields()[name].GetListValue().GetValues() {
		if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			result = append(result, s.StringValue)
		}
	}
	return result
}

// valueToProto converts a runtime value to its closest JSON shape.
// Values with no JSON counterpart become their printString.
func valueToProto(v vm.Value) *structpb.Value {
	return protoValue(v, make(map[*vm.List]bool))
}

// protoValue converts v, where active holds the enclosing lists. Cyclic or
// overly deep lists become their printString.
func protoValue(v vm.Value, active map[*vm.List]bool) *structpb.Value {
	switch v.Type {
	case vm.TypeNil:
		return structpb.NewNullValue()
	case vm.TypeInt:
		return number(float64(v.IntVal))
	case vm.TypeString, vm.TypeSymbol:
		return str(v.StringVal)
	case vm.TypeBool:
		return boolean(v.IsTrue())
	case vm.TypeList:
		if active[v.ListVal] || len(active) >= vm.MaxPrintDepth {
			break
		}
		active[v.ListVal] = true
		defer delete(active, v.ListVal)
		vs := make([]*structpb.Value, len(v.ListVal.Elements))
		for i, elem := range v.ListVal.Elements {
			vs[i] = protoValue(elem, active)
		}
		return list(vs...)
	}
	return str(v.String())
}

// protoToValue converts a JSON value sent by a client. Numbers must be
// integral; objects are rejected.
func protoToValue(p *structpb.Value) (vm.Value, error) {
	switch k := p.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return vm.Nil, nil
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return vm.Nil, fmt.Errorf("%v is not an integer", n)
		}
		return vm.IntValue(int64(n)), nil
	case *structpb.Value_StringValue:
		return vm.StringValue(k.StringValue), nil
	case *structpb.Value_BoolValue:
		return vm.BoolValue(k.BoolValue), nil
	case *structpb.Value_ListValue:
		l := vm.NewList()
		for _, elem := range k.ListValue.GetValues() {
			v, err := protoToValue(elem)
			if err != nil {
				return vm.Nil, err
			}
			l.Add(v)
		}
		return vm.ListValue(l), nil
	}
	return vm.Nil, fmt.Errorf("unsupported argument type %T", p.GetKind())
}

// errorFields describes an evaluation failure: the message, the runtime
// error kind if any, and the source position if known.
func errorFields(err error) fields {
	f := fields{
		"success": boolean(false),
		"error":   str(err.Error()),
	}
	var rerr *vm.Error
	if errors.As(err, &rerr) {
		f["kind"] = str(rerr.Kind.String())
		if rerr.Span.Start.Line > 0 {
			f["line"] = number(float64(rerr.Span.Start.Line))
			f["column"] = number(float64(rerr.Span.Start.Column))
		}
	}
	var perr *compiler.ParseError
	if errors.As(err, &perr) {
		f["kind"] = str("ParseError")
		f["diagnostics"] = diagnosticsValue(perr.Diagnostics)
	}
	return f
}

func diagnosticsValue(diags []compiler.Diagnostic) *structpb.Value {
	vs := make([]*structpb.Value, len(diags))
	for i, d := range diags {
		vs[i] = object(fields{
			"line":    number(float64(d.Pos.Line)),
			"column":  number(float64(d.Pos.Column)),
			"message": str(d.Message),
		})
	}
	return list(vs...)
}
