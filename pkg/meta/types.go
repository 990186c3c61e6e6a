package meta

import (
	"reflect"
)

type typeHandle struct {
	data *typeData
}

func (t typeHandle) IsValid() bool {
	return t.data != nil
}

func (t typeHandle) Id() TypeId {
	if t.data == nil {
		return 0
	}
	return t.data.id
}

// Hash is stable across processes for types with the same representation.
func (t typeHandle) Hash() string {
	if t.data == nil {
		return ""
	}
	return t.data.hash
}

func (t typeHandle) Kind() TypeKind {
	if t.data == nil {
		return KindNone
	}
	return t.data.kind
}

func (t typeHandle) String() string {
	if t.data == nil {
		return "(invalid)"
	}
	return t.data.repr
}

// Reflect returns the Go type used to store values of the type.
func (t typeHandle) Reflect() reflect.Type {
	if t.data == nil {
		return nil
	}
	return t.data.rtype
}

func (t typeHandle) Map() *TypeMap {
	if t.data == nil {
		return nil
	}
	return t.data.src
}

func (t typeHandle) Any() AnyType {
	return AnyType{typeHandle{t.data}}
}

func (t typeHandle) valid() *typeData {
	if t.data == nil {
		panic(ErrInvalidHandle)
	}
	return t.data
}

// Descriptor of any kind of type. The zero value is an invalid handle.
type AnyType struct {
	typeHandle
}

func (t AnyType) as(kind TypeKind) typeHandle {
	if t.data != nil && t.data.kind == kind {
		return t.typeHandle
	}
	return typeHandle{}
}

func (t AnyType) IsArray() bool       { return t.Kind() == KindArray }
func (t AnyType) IsClass() bool       { return t.Kind() == KindClass }
func (t AnyType) IsConstructor() bool { return t.Kind() == KindConstructor }
func (t AnyType) IsDestructor() bool  { return t.Kind() == KindDestructor }
func (t AnyType) IsEnum() bool        { return t.Kind() == KindEnum }
func (t AnyType) IsFunction() bool    { return t.Kind() == KindFunction }
func (t AnyType) IsMember() bool      { return t.Kind() == KindMember }
func (t AnyType) IsMethod() bool      { return t.Kind() == KindMethod }
func (t AnyType) IsNullptr() bool     { return t.Kind() == KindNullptr }
func (t AnyType) IsNumber() bool      { return t.Kind() == KindNumber }
func (t AnyType) IsPointer() bool     { return t.Kind() == KindPointer }
func (t AnyType) IsReference() bool   { return t.Kind() == KindReference }
func (t AnyType) IsVoid() bool        { return t.Kind() == KindVoid }

func (t AnyType) AsArray() ArrayType             { return ArrayType{t.as(KindArray)} }
func (t AnyType) AsClass() ClassType             { return ClassType{t.as(KindClass)} }
func (t AnyType) AsConstructor() ConstructorType { return ConstructorType{t.as(KindConstructor)} }
func (t AnyType) AsDestructor() DestructorType   { return DestructorType{t.as(KindDestructor)} }
func (t AnyType) AsEnum() EnumType               { return EnumType{t.as(KindEnum)} }
func (t AnyType) AsFunction() FunctionType       { return FunctionType{t.as(KindFunction)} }
func (t AnyType) AsMember() MemberType           { return MemberType{t.as(KindMember)} }
func (t AnyType) AsMethod() MethodType           { return MethodType{t.as(KindMethod)} }
func (t AnyType) AsNullptr() NullptrType         { return NullptrType{t.as(KindNullptr)} }
func (t AnyType) AsNumber() NumberType           { return NumberType{t.as(KindNumber)} }
func (t AnyType) AsPointer() PointerType         { return PointerType{t.as(KindPointer)} }
func (t AnyType) AsReference() ReferenceType     { return ReferenceType{t.as(KindReference)} }
func (t AnyType) AsVoid() VoidType               { return VoidType{t.as(KindVoid)} }

type ArrayType struct {
	typeHandle
}

func (t ArrayType) Flags() ArrayFlags {
	return ArrayFlags(t.valid().flags)
}

// Extent is the element count of a bounded array and zero otherwise.
func (t ArrayType) Extent() int {
	return t.valid().extent
}

func (t ArrayType) DataType() AnyType {
	return AnyType{typeHandle{t.valid().elem}}
}

type NullptrType struct {
	typeHandle
}

type VoidType struct {
	typeHandle
}

type NumberType struct {
	typeHandle
}

func (t NumberType) Flags() NumberFlags {
	return NumberFlags(t.valid().flags)
}

func (t NumberType) Size() uintptr {
	return t.valid().rtype.Size()
}

type PointerType struct {
	typeHandle
}

func (t PointerType) Flags() PointerFlags {
	return PointerFlags(t.valid().flags)
}

func (t PointerType) DataType() AnyType {
	return AnyType{typeHandle{t.valid().elem}}
}

type ReferenceType struct {
	typeHandle
}

func (t ReferenceType) Flags() ReferenceFlags {
	return ReferenceFlags(t.valid().flags)
}

func (t ReferenceType) DataType() AnyType {
	return AnyType{typeHandle{t.valid().elem}}
}

type FunctionType struct {
	typeHandle
}

func (t FunctionType) Flags() FunctionFlags {
	return FunctionFlags(t.valid().flags)
}

func (t FunctionType) Arity() int {
	return len(t.valid().sig.params)
}

func (t FunctionType) ArgumentType(i int) AnyType {
	return t.valid().sig.argumentType(i)
}

func (t FunctionType) ArgumentTypes() []AnyType {
	return t.valid().sig.argumentTypes()
}

func (t FunctionType) ReturnType() AnyType {
	return AnyType{typeHandle{t.valid().sig.result}}
}

type MethodType struct {
	typeHandle
}

func (t MethodType) Flags() MethodFlags {
	return MethodFlags(t.valid().flags)
}

func (t MethodType) OwnerType() ClassType {
	return ClassType{typeHandle{t.valid().owner}}
}

func (t MethodType) Arity() int {
	return len(t.valid().sig.params)
}

func (t MethodType) ArgumentType(i int) AnyType {
	return t.valid().sig.argumentType(i)
}

func (t MethodType) ArgumentTypes() []AnyType {
	return t.valid().sig.argumentTypes()
}

func (t MethodType) ReturnType() AnyType {
	return AnyType{typeHandle{t.valid().sig.result}}
}

type ConstructorType struct {
	typeHandle
}

func (t ConstructorType) Flags() ConstructorFlags {
	return ConstructorFlags(t.valid().flags)
}

func (t ConstructorType) OwnerType() ClassType {
	return ClassType{typeHandle{t.valid().owner}}
}

func (t ConstructorType) Arity() int {
	return len(t.valid().sig.params)
}

func (t ConstructorType) ArgumentType(i int) AnyType {
	return t.valid().sig.argumentType(i)
}

func (t ConstructorType) ArgumentTypes() []AnyType {
	return t.valid().sig.argumentTypes()
}

type DestructorType struct {
	typeHandle
}

func (t DestructorType) OwnerType() ClassType {
	return ClassType{typeHandle{t.valid().owner}}
}

type MemberType struct {
	typeHandle
}

func (t MemberType) Flags() MemberFlags {
	return MemberFlags(t.valid().flags)
}

func (t MemberType) OwnerType() ClassType {
	return ClassType{typeHandle{t.valid().owner}}
}

func (t MemberType) ValueType() AnyType {
	return AnyType{typeHandle{t.valid().elem}}
}

func (m *TypeMap) methodType(owner *typeData, rt reflect.Type, sig *signature, flags MethodFlags) *typeData {
	key := typeKey{kind: KindMethod, rtype: rt, owner: owner.id, flags: uint32(flags)}
	return m.intern(key, func() *typeData {
		return &typeData{owner: owner, sig: sig, flags: uint32(flags), repr: owner.repr + "::" + rt.String()}
	})
}

func (m *TypeMap) constructorType(owner *typeData, rt reflect.Type, sig *signature, flags ConstructorFlags) *typeData {
	key := typeKey{kind: KindConstructor, rtype: rt, owner: owner.id, flags: uint32(flags)}
	return m.intern(key, func() *typeData {
		return &typeData{owner: owner, sig: sig, flags: uint32(flags), repr: "ctor " + rt.String()}
	})
}

func (m *TypeMap) destructorType(owner *typeData) *typeData {
	key := typeKey{kind: KindDestructor, owner: owner.id}
	return m.intern(key, func() *typeData {
		return &typeData{owner: owner, repr: "dtor " + owner.repr}
	})
}

func (m *TypeMap) memberType(owner, value *typeData, flags MemberFlags) *typeData {
	key := typeKey{kind: KindMember, owner: owner.id, elem: value.id, flags: uint32(flags)}
	return m.intern(key, func() *typeData {
		repr := owner.repr + "::" + value.repr
		if flags&MemberIsReadonly != 0 {
			repr = owner.repr + "::const " + value.repr
		}
		return &typeData{owner: owner, elem: value, flags: uint32(flags), rtype: value.rtype, repr: repr}
	})
}
