package meta

type TypeKind uint8

const (
	KindNone TypeKind = iota
	KindArray
	KindClass
	KindConstructor
	KindDestructor
	KindEnum
	KindFunction
	KindMember
	KindMethod
	KindNullptr
	KindNumber
	KindPointer
	KindReference
	KindVoid
)

var kindNames = [...]string{
	KindNone:        "none",
	KindArray:       "array",
	KindClass:       "class",
	KindConstructor: "constructor",
	KindDestructor:  "destructor",
	KindEnum:        "enum",
	KindFunction:    "function",
	KindMember:      "member",
	KindMethod:      "method",
	KindNullptr:     "nullptr",
	KindNumber:      "number",
	KindPointer:     "pointer",
	KindReference:   "reference",
	KindVoid:        "void",
}

func (k TypeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

type ArrayFlags uint32

const (
	ArrayIsBounded ArrayFlags = 1 << iota
	ArrayIsUnbounded
	ArrayIsReadonly
)

type ClassFlags uint32

const (
	ClassIsEmpty ClassFlags = 1 << iota
	ClassIsPolymorphic
	ClassIsCopyable
	ClassIsMovable
)

type FunctionFlags uint32

const (
	FunctionIsNoexcept FunctionFlags = 1 << iota
	FunctionIsVariadic
	FunctionReturnsError
)

type MethodFlags uint32

const (
	MethodIsConst MethodFlags = 1 << iota
	MethodIsNoexcept
	MethodIsLvalueQualified
	MethodIsRvalueQualified
	MethodReturnsError
)

type MemberFlags uint32

const (
	MemberIsReadonly MemberFlags = 1 << iota
)

type NumberFlags uint32

const (
	NumberIsSigned NumberFlags = 1 << iota
	NumberIsUnsigned
	NumberIsIntegral
	NumberIsFloatingPoint
	NumberIsBool
	NumberIsComplex
)

type PointerFlags uint32

const (
	PointerIsReadonly PointerFlags = 1 << iota
	PointerIsVoid
)

type ReferenceFlags uint32

const (
	ReferenceIsReadonly ReferenceFlags = 1 << iota
	ReferenceIsLvalue
	ReferenceIsRvalue
)

type ConstructorFlags uint32

const (
	ConstructorIsNoexcept ConstructorFlags = 1 << iota
	ConstructorReturnsError
)
