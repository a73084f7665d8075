package value

// ObjKind discriminates the heap Object variants (I-kind tag, not to
// be confused with the value Kind tag above it).
type ObjKind uint8

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
	ObjKindNative
	ObjKindClosure
	ObjKindUpvalue
	ObjKindClass
	ObjKindInstance
	ObjKindBoundMethod
)

// String returns a human-readable name for an object kind, used by the
// disassembler and by error messages.
func (k ObjKind) String() string {
	switch k {
	case ObjKindString:
		return "string"
	case ObjKindFunction:
		return "function"
	case ObjKindNative:
		return "native"
	case ObjKindClosure:
		return "closure"
	case ObjKindUpvalue:
		return "upvalue"
	case ObjKindClass:
		return "class"
	case ObjKindInstance:
		return "instance"
	case ObjKindBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Object is the common interface every heap-allocated value implements.
// Every object carries a mark bit (for the tracing collector) and an
// intrusive "next" link threading every live object into the heap's
// single allocation list (I1), exactly as clox's `struct Obj` header
// does with `isMarked`/`next`.
type Object interface {
	ObjKind() ObjKind
	Marked() bool
	SetMarked(bool)
	Next() Object
	SetNext(Object)
	String() string
}

// Header is embedded by every concrete Object implementation to supply
// the common mark bit and allocation-list link without repeating the
// bookkeeping in each variant.
type Header struct {
	kind   ObjKind
	marked bool
	next   Object
}

// NewHeader initializes a Header for a freshly allocated object. The
// mark bit starts clear; the heap allocator is responsible for
// threading the object onto the allocation list via SetNext.
func NewHeader(kind ObjKind) Header {
	return Header{kind: kind}
}

func (h *Header) ObjKind() ObjKind { return h.kind }
func (h *Header) Marked() bool     { return h.marked }
func (h *Header) SetMarked(m bool) { h.marked = m }
func (h *Header) Next() Object     { return h.next }
func (h *Header) SetNext(o Object) { h.next = o }

// ObjString is an interned, immutable byte string with a precomputed
// FNV-1a hash (I2: the allocator guarantees at most one ObjString per
// byte sequence — see pkg/table and pkg/heap).
type ObjString struct {
	Header
	Chars string
	Hash  uint32
}

func (s *ObjString) String() string { return s.Chars }

// HashString computes the FNV-1a hash of s, matching clox's
// hashString (table.c's companion in object.c): offset basis
// 2166136261, prime 16777619, one XOR-then-multiply per byte.
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// NewString allocates an ObjString. Callers that want interning
// semantics (I2) should go through pkg/heap.Heap.InternString instead
// of calling this directly — this constructor is the low-level
// building block the heap uses once it has confirmed no equal string
// already exists.
func NewString(chars string) *ObjString {
	return &ObjString{Header: NewHeader(ObjKindString), Chars: chars, Hash: HashString(chars)}
}

// ObjUpvalue is either open (Location points into the live value
// stack) or closed (Location points at Closed, its own field). Next
// threads the VM's per-machine list of open upvalues, kept sorted by
// descending stack address (I3) to enable sharing and correct
// close-out — see pkg/vm for the list discipline; this type only
// carries the storage. Slot records the stack index Location
// originally pointed at: Go gives no portable way to compare two
// *Value pointers for relative stack order the way clox compares raw
// addresses, so the VM orders and matches open upvalues by this index
// instead of pointer arithmetic.
type ObjUpvalue struct {
	Header
	Location *Value
	Closed   Value
	Slot     int
	NextOpen *ObjUpvalue // intrusive open-upvalue list link (distinct from Header.next)
}

func (u *ObjUpvalue) String() string { return "upvalue" }

// NewUpvalue allocates an open upvalue pointing at slot, originally at
// stack index slotIndex.
func NewUpvalue(slot *Value, slotIndex int) *ObjUpvalue {
	return &ObjUpvalue{Header: NewHeader(ObjKindUpvalue), Location: slot, Slot: slotIndex}
}

// IsOpen reports whether the upvalue still points into the stack
// rather than its own Closed field.
func (u *ObjUpvalue) IsOpen() bool { return u.Location != &u.Closed }

// Close lifts the upvalue off the stack: it copies the live value into
// Closed and redirects Location to point at that field, so the
// upvalue outlives the stack slot it used to alias.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}
