package meta

import (
	"errors"

	"axlab.dev/meta/pkg/hierarchy"
)

var (
	ErrInvalidHandle    = errors.New("invalid handle")
	ErrEmptyValue       = errors.New("value is empty")
	ErrBadCast          = errors.New("bad cast")
	ErrConstViolation   = errors.New("const violation")
	ErrNotCopyable      = errors.New("type is not copyable")
	ErrNotMovable       = errors.New("type is neither movable nor copyable")
	ErrNullPointer      = errors.New("null pointer dereference")
	ErrOutOfRange       = errors.New("index out of range")
	ErrArityMismatch    = errors.New("wrong number of arguments")
	ErrArgumentMismatch = errors.New("argument type mismatch")
	ErrNoViableOverload = errors.New("no viable overload")
	ErrAmbiguousCall    = errors.New("ambiguous call")
	ErrNotSettable      = errors.New("not settable")
	ErrNotConstructible = errors.New("type cannot be constructed from the arguments")

	ErrNotBase       = hierarchy.ErrNotBase
	ErrAmbiguousBase = hierarchy.ErrAmbiguous
)
