package meta

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"axlab.dev/meta/internal/util"
	"axlab.dev/meta/pkg/hierarchy"
	"golang.org/x/exp/slices"
)

// Dynamic makes a class polymorphic when embedded in it, directly or through a
// base. It records the most-derived class of the complete object so that
// pointers to a base can be resolved back to the complete object.
//
// The engine sets the tag for every object it creates or copies. Objects built
// with plain Go code need a call to SetDynamicType. A tag that was copied by Go
// assignment to another address is ignored.
type Dynamic struct {
	self uintptr
	top  uintptr
	data *typeData
}

// Type returns the most-derived class recorded in the tag, or an invalid handle
// if the tag is not set for this address.
func (d *Dynamic) Type() ClassType {
	if d.data == nil || d.self != uintptr(unsafe.Pointer(d)) {
		return ClassType{}
	}
	return ClassType{typeHandle{d.data}}
}

// SetDynamicType tags p as a complete object of type T.
func SetDynamicType[T any](p *T) {
	data := Types().resolve(typeOf[T]())
	util.Assert(data.kind == KindClass, util.Msg("`%s` is not a class", data.repr))
	data.installTags(unsafe.Pointer(p))
}

type baseInfo struct {
	data    *typeData
	offset  uintptr
	virtual bool
}

type classInfo struct {
	rw sync.RWMutex

	hasTag bool
	tagOff uintptr

	bases     []baseInfo
	ctors     []*constructorData
	dtor      *destructorData
	members   []*memberData
	methods   []*methodData
	functions []*functionData
	variables []*variableData
	typedefs  []typedefData

	copyFn func(dst, src unsafe.Pointer)
	moveFn func(dst, src unsafe.Pointer)
	noCopy bool
	noMove bool
}

type typedefData struct {
	name string
	data *typeData
}

func newClassInfo(rt reflect.Type) *classInfo {
	info := &classInfo{}
	if rt.Kind() == reflect.Struct {
		for i := 0; i < rt.NumField(); i++ {
			if field := rt.Field(i); field.Type == dynamicType {
				info.hasTag, info.tagOff = true, field.Offset
				break
			}
		}
	}
	return info
}

func (d *typeData) classId() hierarchy.ClassId {
	return hierarchy.ClassId(d.id)
}

func (d *typeData) baseList() []baseInfo {
	d.class.rw.RLock()
	defer d.class.rw.RUnlock()
	return slices.Clone(d.class.bases)
}

func (d *typeData) isBaseOf(derived *typeData) bool {
	return d.kind == KindClass && derived.kind == KindClass && d.src.hierarchy().IsBaseOf(d.classId(), derived.classId())
}

// Offset of the Dynamic tag within an object of the class.
func (d *typeData) tagOffset() (uintptr, bool) {
	if d.kind != KindClass {
		return 0, false
	}
	if d.class.hasTag {
		return d.class.tagOff, true
	}

	bases := d.baseList()
	for _, it := range bases {
		if !it.virtual {
			if off, ok := it.data.tagOffset(); ok {
				return it.offset + off, true
			}
		}
	}
	for _, it := range bases {
		if it.virtual {
			if off, ok := it.data.tagOffset(); ok {
				return it.offset + off, true
			}
		}
	}
	return 0, false
}

func (d *typeData) isPolymorphic() bool {
	_, ok := d.tagOffset()
	return ok
}

// Offsets of every tag in a complete object of the class.
func (d *typeData) tagSites() []uintptr {
	if !d.isPolymorphic() {
		return nil
	}

	subs, err := d.src.hierarchy().Subobjects(d.classId())
	util.Check(err, "class layout")

	var out []uintptr
	for _, it := range subs {
		sub := d.src.byIdLocked(TypeId(it.Class))
		if off, ok := sub.tagOffset(); ok && !slices.Contains(out, it.Offset+off) {
			out = append(out, it.Offset+off)
		}
	}
	return out
}

func (d *typeData) installTags(complete unsafe.Pointer) {
	for _, site := range d.tagSites() {
		tag := (*Dynamic)(unsafe.Add(complete, site))
		*tag = Dynamic{self: uintptr(unsafe.Pointer(tag)), top: site, data: d}
	}
}

// Most-derived class and complete object address for an object of class d at
// p. Falls back to d itself when the object carries no valid tag.
func (d *typeData) dynamicOf(p unsafe.Pointer) (*typeData, unsafe.Pointer) {
	off, ok := d.tagOffset()
	if !ok || p == nil {
		return d, p
	}

	tag := (*Dynamic)(unsafe.Add(p, off))
	most := tag.data
	if most == nil || most == d || tag.self != uintptr(unsafe.Pointer(tag)) || most.src != d.src || !d.isBaseOf(most) {
		return d, p
	}
	return most, unsafe.Add(p, int(off)-int(tag.top))
}

func (m *TypeMap) byIdLocked(id TypeId) *typeData {
	m.typesRw.RLock()
	defer m.typesRw.RUnlock()
	return m.byId[id]
}

// Adjusts p, pointing to an object of class from, to its to base sub-object.
//
// The static route is tried first. When to is not a base of from, the object
// is resolved to its most-derived class and the route is taken from there.
func (m *TypeMap) upcast(p unsafe.Pointer, from, to *typeData) (unsafe.Pointer, error) {
	if from == to || p == nil {
		return p, nil
	}
	if from.kind != KindClass || to.kind != KindClass {
		return nil, fmt.Errorf("%w: `%s` to `%s`", ErrBadCast, from.repr, to.repr)
	}

	graph := m.hierarchy()
	most, complete := from.dynamicOf(p)
	out, err := graph.Cast(p, from.classId(), to.classId(), most.classId(), complete)
	if err == nil || most == from || !errors.Is(err, ErrNotBase) {
		return out, err
	}
	return graph.Cast(complete, most.classId(), to.classId(), most.classId(), complete)
}

// Static route check, used when only the argument types are known.
func (m *TypeMap) canUpcast(from, to *typeData) error {
	if from == to {
		return nil
	}
	if from.kind != KindClass || to.kind != KindClass {
		return ErrBadCast
	}
	_, err := m.hierarchy().Route(from.classId(), to.classId())
	return err
}

func rawCopy(rt reflect.Type, dst, src unsafe.Pointer) {
	reflect.NewAt(rt, dst).Elem().Set(reflect.NewAt(rt, src).Elem())
}

func rawZero(rt reflect.Type, p unsafe.Pointer) {
	reflect.NewAt(rt, p).Elem().SetZero()
}

func (d *typeData) isCopyable() bool {
	switch d.kind {
	case KindClass:
		d.class.rw.RLock()
		defer d.class.rw.RUnlock()
		return !d.class.noCopy
	case KindArray:
		return d.elem.isCopyable()
	case KindVoid, KindMethod, KindConstructor, KindDestructor, KindMember:
		return false
	}
	return true
}

func (d *typeData) isMovable() bool {
	if d.kind == KindClass {
		d.class.rw.RLock()
		defer d.class.rw.RUnlock()
		return !d.class.noMove || !d.class.noCopy
	}
	if d.kind == KindArray {
		return d.elem.isMovable()
	}
	return d.isCopyable()
}

// Copy-constructs the object at src into dst.
func (d *typeData) copyTo(dst, src unsafe.Pointer) error {
	switch d.kind {
	case KindClass:
		d.class.rw.RLock()
		fn, deny := d.class.copyFn, d.class.noCopy
		d.class.rw.RUnlock()
		if deny {
			return fmt.Errorf("%w: `%s`", ErrNotCopyable, d.repr)
		}
		if fn != nil {
			fn(dst, src)
		} else {
			rawCopy(d.rtype, dst, src)
		}
		d.installTags(dst)
		return nil

	case KindArray:
		if d.flags&uint32(ArrayIsBounded) != 0 && d.elem.kind == KindClass {
			size := d.elem.rtype.Size()
			for i := 0; i < d.extent; i++ {
				at := uintptr(i) * size
				if err := d.elem.copyTo(unsafe.Add(dst, at), unsafe.Add(src, at)); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if !d.isCopyable() {
		return fmt.Errorf("%w: `%s`", ErrNotCopyable, d.repr)
	}
	rawCopy(d.rtype, dst, src)
	return nil
}

// Move-constructs the object at src into dst. Classes without a move fall
// back to a copy. The default move leaves the source zeroed.
func (d *typeData) moveTo(dst, src unsafe.Pointer) error {
	switch d.kind {
	case KindClass:
		d.class.rw.RLock()
		fn, deny, noCopy := d.class.moveFn, d.class.noMove, d.class.noCopy
		d.class.rw.RUnlock()
		switch {
		case deny && noCopy:
			return fmt.Errorf("%w: `%s`", ErrNotMovable, d.repr)
		case deny:
			return d.copyTo(dst, src)
		case fn != nil:
			fn(dst, src)
			d.installTags(dst)
			return nil
		}

		rawCopy(d.rtype, dst, src)
		d.installTags(dst)
		d.zeroKeepingTags(src)
		return nil

	case KindArray:
		if d.flags&uint32(ArrayIsBounded) != 0 && d.elem.kind == KindClass {
			size := d.elem.rtype.Size()
			for i := 0; i < d.extent; i++ {
				at := uintptr(i) * size
				if err := d.elem.moveTo(unsafe.Add(dst, at), unsafe.Add(src, at)); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return d.copyTo(dst, src)
}

func (d *typeData) zeroKeepingTags(p unsafe.Pointer) {
	sites := d.tagSites()
	saved := make([]Dynamic, len(sites))
	for i, site := range sites {
		saved[i] = *(*Dynamic)(unsafe.Add(p, site))
	}
	rawZero(d.rtype, p)
	for i, site := range sites {
		*(*Dynamic)(unsafe.Add(p, site)) = saved[i]
	}
}

// Destroys the complete object at p.
func (d *typeData) destroy(p unsafe.Pointer) {
	switch d.kind {
	case KindClass:
		d.destroySubobject(p, true)
	case KindArray:
		if d.flags&uint32(ArrayIsBounded) != 0 && d.elem.kind == KindClass {
			size := d.elem.rtype.Size()
			for i := d.extent - 1; i >= 0; i-- {
				d.elem.destroy(unsafe.Add(p, uintptr(i)*size))
			}
		}
	}
}

// Runs the destructor of the class, then of its non-virtual bases in reverse
// declaration order, then of its virtual bases when p is the complete object.
func (d *typeData) destroySubobject(p unsafe.Pointer, complete bool) {
	d.class.rw.RLock()
	dtor := d.class.dtor
	d.class.rw.RUnlock()
	if dtor != nil {
		dtor.fn(p)
	}

	bases := d.baseList()
	for i := len(bases) - 1; i >= 0; i-- {
		if it := bases[i]; !it.virtual {
			it.data.destroySubobject(unsafe.Add(p, it.offset), false)
		}
	}

	if !complete {
		return
	}
	graph := d.src.hierarchy()
	vbases := graph.VirtualBases(d.classId())
	for i := len(vbases) - 1; i >= 0; i-- {
		off, err := graph.VirtualOffset(d.classId(), vbases[i])
		util.Check(err, "virtual base layout")
		d.src.byIdLocked(TypeId(vbases[i])).destroySubobject(unsafe.Add(p, off), false)
	}
}
