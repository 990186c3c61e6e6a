package main

import (
	"strings"

	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/meta"
)

type report struct {
	Types  []typeReport  `yaml:"types,omitempty"`
	Scopes []scopeReport `yaml:"scopes,omitempty"`
}

type typeReport struct {
	Name         string            `yaml:"name"`
	Kind         string            `yaml:"kind"`
	Size         uintptr           `yaml:"size"`
	Flags        []string          `yaml:"flags,omitempty"`
	Underlying   string            `yaml:"underlying,omitempty"`
	Evalues      []evalueReport    `yaml:"evalues,omitempty"`
	Bases        []baseReport      `yaml:"bases,omitempty"`
	Constructors []callReport      `yaml:"constructors,omitempty"`
	Destructor   bool              `yaml:"destructor,omitempty"`
	Members      []valueReport     `yaml:"members,omitempty"`
	Methods      []callReport      `yaml:"methods,omitempty"`
	Functions    []callReport      `yaml:"functions,omitempty"`
	Variables    []valueReport     `yaml:"variables,omitempty"`
	Typedefs     map[string]string `yaml:"typedefs,omitempty"`
}

type scopeReport struct {
	Name      string            `yaml:"name"`
	Functions []callReport      `yaml:"functions,omitempty"`
	Variables []valueReport     `yaml:"variables,omitempty"`
	Typedefs  map[string]string `yaml:"typedefs,omitempty"`
}

type evalueReport struct {
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

type baseReport struct {
	Type    string  `yaml:"type"`
	Offset  uintptr `yaml:"offset"`
	Virtual bool    `yaml:"virtual,omitempty"`
}

type callReport struct {
	Name      string   `yaml:"name,omitempty"`
	Signature string   `yaml:"signature"`
	Arguments []string `yaml:"arguments,omitempty"`
	Flags     []string `yaml:"flags,omitempty"`
}

type valueReport struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Readonly bool   `yaml:"readonly,omitempty"`
}

var (
	classFlagNames       = []string{"empty", "polymorphic", "copyable", "movable"}
	functionFlagNames    = []string{"noexcept", "variadic", "returns_error"}
	methodFlagNames      = []string{"const", "noexcept", "lvalue", "rvalue", "returns_error"}
	constructorFlagNames = []string{"noexcept", "returns_error"}
)

// Names of the bits set in flags, bit i named by names[i].
func flagNames[F ~uint32](flags F, names []string) (out []string) {
	for i, it := range names {
		if flags&(1<<i) != 0 {
			out = append(out, it)
		}
	}
	return out
}

// Classes and enums with at least one registration. Types that were only
// resolved on the way are left out.
func registered(t meta.AnyType) bool {
	if enum := t.AsEnum(); enum.IsValid() {
		return len(enum.Evalues()) > 0
	}
	class := t.AsClass()
	if !class.IsValid() {
		return false
	}
	return len(class.BaseClasses()) > 0 || len(class.Constructors()) > 0 ||
		class.Destructor().IsValid() || len(class.Members()) > 0 ||
		len(class.Methods()) > 0 || len(class.Functions()) > 0 ||
		len(class.Variables()) > 0 || len(class.Typedefs()) > 0
}

// Registered types whose representation matches the glob pattern, in id order.
func registeredTypes(types *meta.TypeMap, pattern string) (out []meta.AnyType) {
	for _, it := range types.All() {
		if registered(it) && util.MatchesPattern(it.String(), pattern) {
			out = append(out, it)
		}
	}
	return out
}

func buildReport(types *meta.TypeMap, typePattern, scopePattern string) (out report) {
	if typePattern != "" {
		for _, it := range registeredTypes(types, typePattern) {
			out.Types = append(out.Types, typeReportOf(it))
		}
	}
	if scopePattern != "" {
		for _, name := range types.Scopes() {
			if util.MatchesPattern(name, scopePattern) {
				out.Scopes = append(out.Scopes, scopeReportOf(types.ResolveScope(name)))
			}
		}
	}
	return out
}

func typeReportOf(t meta.AnyType) typeReport {
	out := typeReport{Name: t.String(), Kind: t.Kind().String(), Size: t.Reflect().Size()}

	if enum := t.AsEnum(); enum.IsValid() {
		out.Underlying = enum.UnderlyingType().String()
		for _, it := range enum.Evalues() {
			out.Evalues = append(out.Evalues, evalueReport{it.Name(), it.UnderlyingValue().Interface()})
		}
		return out
	}

	class := t.AsClass()
	out.Flags = flagNames(class.Flags(), classFlagNames)
	for _, it := range class.BaseClasses() {
		out.Bases = append(out.Bases, baseReport{it.Type.String(), it.Offset, it.Virtual})
	}
	for _, it := range class.Constructors() {
		typ := it.Type()
		out.Constructors = append(out.Constructors, callReport{
			Signature: signature(typ.ArgumentTypes(), meta.AnyType{}),
			Arguments: argumentNames(it.Arguments()),
			Flags:     flagNames(typ.Flags(), constructorFlagNames),
		})
	}
	out.Destructor = class.Destructor().IsValid()
	for _, it := range class.Members() {
		typ := it.Type()
		out.Members = append(out.Members, valueReport{
			Name:     it.Name(),
			Type:     typ.ValueType().String(),
			Readonly: typ.Flags()&meta.MemberIsReadonly != 0,
		})
	}
	for _, it := range class.Methods() {
		typ := it.Type()
		out.Methods = append(out.Methods, callReport{
			Name:      it.Name(),
			Signature: signature(typ.ArgumentTypes(), typ.ReturnType()),
			Arguments: argumentNames(it.Arguments()),
			Flags:     flagNames(typ.Flags(), methodFlagNames),
		})
	}
	out.Functions = functionReports(class.Functions())
	out.Variables = variableReports(class.Variables())
	out.Typedefs = typedefReports(class.Typedefs())
	return out
}

func scopeReportOf(scope meta.Scope) scopeReport {
	return scopeReport{
		Name:      scope.Name(),
		Functions: functionReports(scope.Functions()),
		Variables: variableReports(scope.Variables()),
		Typedefs:  typedefReports(scope.Typedefs()),
	}
}

func functionReports(list []meta.Function) (out []callReport) {
	for _, it := range list {
		typ := it.Type()
		out = append(out, callReport{
			Name:      it.Name(),
			Signature: signature(typ.ArgumentTypes(), typ.ReturnType()),
			Arguments: argumentNames(it.Arguments()),
			Flags:     flagNames(typ.Flags(), functionFlagNames),
		})
	}
	return out
}

func variableReports(list []meta.Variable) (out []valueReport) {
	for _, it := range list {
		out = append(out, valueReport{Name: it.Name(), Type: it.Type().String(), Readonly: it.IsReadonly()})
	}
	return out
}

func typedefReports(list []meta.Typedef) map[string]string {
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, it := range list {
		out[it.Name] = it.Type.String()
	}
	return out
}

func argumentNames(list []meta.Argument) (out []string) {
	for _, it := range list {
		if it.Name != "" {
			out = append(out, it.Name)
		}
	}
	return out
}

// Signature as `(int, &const demo.Ivec2) int`. The result is left out when
// invalid or void.
func signature(args []meta.AnyType, result meta.AnyType) string {
	out := strings.Builder{}
	out.WriteString("(")
	for i, it := range args {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(it.String())
	}
	out.WriteString(")")
	if result.IsValid() && !result.IsVoid() {
		out.WriteString(" ")
		out.WriteString(result.String())
	}
	return out.String()
}
