package main

import (
	"fmt"
	"io"
	"strings"

	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/meta"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Session is a line interpreter over a type map. Values created with `let`
// live in the session and are referenced as `$name` in later commands.
type session struct {
	types *meta.TypeMap
	vars  map[string]meta.Value
	out   io.Writer
}

var commandNames = []string{"addr", "call", "dump", "enum", "get", "let", "method", "new", "set", "types", "vars"}

func newSession(types *meta.TypeMap, out io.Writer) *session {
	return &session{types: types, vars: make(map[string]meta.Value), out: out}
}

// Run splits and executes a single input line. Panics from the reflection
// layer are returned as errors.
func (s *session) Run(line string) (err error) {
	fields, ok := util.Fields(line)
	if !ok {
		return fmt.Errorf("unterminated quote")
	}
	if len(fields) == 0 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	return s.Exec(fields)
}

func (s *session) Exec(fields []string) error {
	if fields[0] == "let" {
		if len(fields) < 4 || fields[2] != "=" || !strings.HasPrefix(fields[1], "$") {
			return fmt.Errorf("usage: let $NAME = COMMAND...")
		}
		v, err := s.eval(fields[3], fields[4:])
		if err != nil {
			return err
		}
		name := fields[1][1:]
		s.vars[name] = v
		fmt.Fprintf(s.out, "$%s = %s\n", name, v)
		return nil
	}

	v, err := s.eval(fields[0], fields[1:])
	if err != nil {
		return err
	}
	if v.IsValid() {
		fmt.Fprintln(s.out, v)
	}
	return nil
}

func (s *session) eval(cmd string, args []string) (meta.Value, error) {
	switch cmd {
	case "call":
		return s.call(args)
	case "addr":
		if len(args) != 1 {
			return meta.Value{}, fmt.Errorf("usage: addr $VAR")
		}
		v, err := s.variable(args[0])
		if err != nil {
			return v, err
		}
		return v.Addr(), nil
	case "new":
		return s.create(args)
	case "method":
		return s.method(args)
	case "get":
		return s.get(args)
	case "set":
		return meta.Value{}, s.set(args)
	case "enum":
		return s.enum(args)
	case "types":
		s.listTypes(args)
		return meta.Value{}, nil
	case "dump":
		pattern := "*"
		if len(args) > 0 {
			pattern = args[0]
		}
		fmt.Fprint(s.out, util.Yaml(buildReport(s.types, pattern, "")))
		return meta.Value{}, nil
	case "vars":
		s.listVars()
		return meta.Value{}, nil
	}
	return meta.Value{}, fmt.Errorf("unknown command `%s`", cmd)
}

// call TARGET ARGS... where TARGET is `scope.function` or `Class.function`.
func (s *session) call(args []string) (meta.Value, error) {
	if len(args) == 0 {
		return meta.Value{}, fmt.Errorf("usage: call TARGET ARGS...")
	}
	owner, name, ok := strings.Cut(args[0], ".")
	if !ok {
		return meta.Value{}, fmt.Errorf("invalid target `%s`, expected OWNER.NAME", args[0])
	}
	values, err := s.args(args[1:])
	if err != nil {
		return meta.Value{}, err
	}

	if scope := s.types.ResolveScope(owner); scope.IsValid() {
		return scope.TryInvoke(name, values...)
	}
	if class := s.findType(owner).AsClass(); class.IsValid() {
		return class.TryInvokeFunction(name, values...)
	}
	return meta.Value{}, fmt.Errorf("no scope or class `%s`", owner)
}

// new CLASS ARGS...
func (s *session) create(args []string) (meta.Value, error) {
	if len(args) == 0 {
		return meta.Value{}, fmt.Errorf("usage: new CLASS ARGS...")
	}
	class, err := s.class(args[0])
	if err != nil {
		return meta.Value{}, err
	}
	values, err := s.args(args[1:])
	if err != nil {
		return meta.Value{}, err
	}
	return class.TryCreate(values...)
}

// method $VAR NAME ARGS...
func (s *session) method(args []string) (meta.Value, error) {
	if len(args) < 2 {
		return meta.Value{}, fmt.Errorf("usage: method $VAR NAME ARGS...")
	}
	instance, class, err := s.instance(args[0])
	if err != nil {
		return meta.Value{}, err
	}
	values, err := s.args(args[2:])
	if err != nil {
		return meta.Value{}, err
	}
	return class.TryInvokeMethod(args[1], instance, values...)
}

// get $VAR MEMBER
func (s *session) get(args []string) (meta.Value, error) {
	if len(args) != 2 {
		return meta.Value{}, fmt.Errorf("usage: get $VAR MEMBER")
	}
	instance, class, err := s.instance(args[0])
	if err != nil {
		return meta.Value{}, err
	}
	member := class.GetMember(args[1])
	if !member.IsValid() {
		return meta.Value{}, fmt.Errorf("no member `%s` in `%s`", args[1], class)
	}
	return member.TryGet(instance)
}

// set $VAR MEMBER VALUE
func (s *session) set(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: set $VAR MEMBER VALUE")
	}
	instance, class, err := s.instance(args[0])
	if err != nil {
		return err
	}
	member := class.GetMember(args[1])
	if !member.IsValid() {
		return fmt.Errorf("no member `%s` in `%s`", args[1], class)
	}
	value, err := s.arg(args[2])
	if err != nil {
		return err
	}
	return member.TrySet(instance, value)
}

// enum ENUM NAME|VALUE
func (s *session) enum(args []string) (meta.Value, error) {
	if len(args) != 2 {
		return meta.Value{}, fmt.Errorf("usage: enum ENUM NAME|VALUE")
	}
	enum := s.findType(args[0]).AsEnum()
	if !enum.IsValid() {
		return meta.Value{}, fmt.Errorf("no enum `%s`", args[0])
	}

	ev := enum.NameToEvalue(args[1])
	if !ev.IsValid() {
		if value, err := s.arg(args[1]); err == nil {
			ev = enum.ValueToEvalue(value)
		}
	}
	if !ev.IsValid() {
		return meta.Value{}, fmt.Errorf("no evalue `%s` in `%s`", args[1], enum)
	}
	return ev.Value(), nil
}

func (s *session) listTypes(args []string) {
	pattern := "*"
	if len(args) > 0 {
		pattern = args[0]
	}
	for _, it := range registeredTypes(s.types, pattern) {
		fmt.Fprintf(s.out, "%s %s\n", it.Kind(), it)
	}
}

func (s *session) listVars() {
	names := maps.Keys(s.vars)
	slices.Sort(names)
	for _, it := range names {
		fmt.Fprintf(s.out, "$%s = %s\n", it, s.vars[it])
	}
}

func (s *session) findType(name string) meta.AnyType {
	for _, it := range s.types.All() {
		if !it.IsClass() && !it.IsEnum() {
			continue
		}
		if it.String() == name || it.Reflect().Name() == name {
			return it
		}
	}
	return meta.AnyType{}
}

func (s *session) class(name string) (meta.ClassType, error) {
	class := s.findType(name).AsClass()
	if !class.IsValid() {
		return class, fmt.Errorf("no class `%s`", name)
	}
	return class, nil
}

// Session variable holding a class object or a pointer to one, and the class.
func (s *session) instance(token string) (meta.Value, meta.ClassType, error) {
	v, err := s.variable(token)
	if err != nil {
		return v, meta.ClassType{}, err
	}
	class := v.Type().AsClass()
	if v.IsPointer() {
		class = v.Type().AsPointer().DataType().AsClass()
	}
	if !class.IsValid() {
		return v, class, fmt.Errorf("`%s` holds a %s, not a class object", token, v.Type().Kind())
	}
	return v, class, nil
}

func (s *session) variable(token string) (meta.Value, error) {
	if !strings.HasPrefix(token, "$") {
		return meta.Value{}, fmt.Errorf("expected a variable, got `%s`", token)
	}
	v, ok := s.vars[token[1:]]
	if !ok {
		return meta.Value{}, fmt.Errorf("undefined variable `%s`", token)
	}
	return v, nil
}

func (s *session) args(tokens []string) (out []any, err error) {
	out = make([]any, len(tokens))
	for i, it := range tokens {
		if out[i], err = s.arg(it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Argument from a token: `nil`, `$var`, `&$var`, `Enum::name`, or a YAML
// scalar.
func (s *session) arg(token string) (any, error) {
	switch {
	case token == "nil":
		return nil, nil
	case strings.HasPrefix(token, "&$"):
		v, err := s.variable(token[1:])
		if err != nil {
			return nil, err
		}
		return v.Addr(), nil
	case strings.HasPrefix(token, "$"):
		return s.variable(token)
	}

	if enumName, name, ok := strings.Cut(token, "::"); ok {
		enum := s.findType(enumName).AsEnum()
		if !enum.IsValid() {
			return nil, fmt.Errorf("no enum `%s`", enumName)
		}
		ev := enum.NameToEvalue(name)
		if !ev.IsValid() {
			return nil, fmt.Errorf("no evalue `%s` in `%s`", name, enum)
		}
		return ev.Value(), nil
	}

	var out any
	if err := yaml.Unmarshal([]byte(token), &out); err != nil || out == nil {
		return token, nil
	}
	switch out.(type) {
	case map[string]any, []any:
		return token, nil
	}
	return out, nil
}
