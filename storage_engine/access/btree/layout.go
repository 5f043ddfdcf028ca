package btree

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"PagedDB/types"
)

/*
nodePage is the slotted-page view of one tree page: a fixed header followed
by a key array followed by an element array (child extent ids for internal
nodes, values for leaves).

Header layout (little-endian, 56 bytes):

	  0  nodeType     uint8
	  1  reserved     (3 bytes)
	  4  maxElements  int32
	  8  numElements  int32
	 12  reserved     (4 bytes)
	 16  keySize      uint64
	 24  keyStart     uint64
	 32  elementSize  uint64
	 40  elementStart uint64
	 48  next         uint64   — leaf chain, InvalidExtentID for internal

Layout invariants, computed once at format time and persisted:

	keyStart     = max(headerSize, keySize)
	keyEnd       = keyStart + keySize*maxElements
	elementStart = keyEnd rounded up to a multiple of elementSize
	elementStart + elementSize*maxElements <= pageSize
	maxElements  = (pageSize - headerSize - keySize - elementSize) /
	               (keySize + elementSize)

The subtraction of one extra key+element pair reserves the room the
elementStart round-up may consume.

All typed access to key and element slots happens here, through unsafe
pointer overlays at checked offsets; nothing outside this file touches
page bytes directly. Offsets stay aligned because keyStart and the slot
sizes are multiples of the respective type sizes, and Go type sizes are
multiples of their alignment.
*/

const (
	offNodeType     = 0
	offMaxElements  = 4
	offNumElements  = 8
	offKeySize      = 16
	offKeyStart     = 24
	offElementSize  = 32
	offElementStart = 40
	offNext         = 48
	pageHeaderSize  = 56
)

type nodePage[K Key, V any] struct {
	buf []byte
}

// ── Header accessors ──────────────────────────────────────────────────────

func (p nodePage[K, V]) typ() NodeType {
	return NodeType(p.buf[offNodeType])
}

func (p nodePage[K, V]) setTyp(t NodeType) {
	p.buf[offNodeType] = byte(t)
}

func (p nodePage[K, V]) maxElements() int32 {
	return int32(binary.LittleEndian.Uint32(p.buf[offMaxElements:]))
}

func (p nodePage[K, V]) numElements() int32 {
	return int32(binary.LittleEndian.Uint32(p.buf[offNumElements:]))
}

func (p nodePage[K, V]) setNumElements(n int32) {
	binary.LittleEndian.PutUint32(p.buf[offNumElements:], uint32(n))
}

func (p nodePage[K, V]) keySize() uint64 {
	return binary.LittleEndian.Uint64(p.buf[offKeySize:])
}

func (p nodePage[K, V]) keyStart() uint64 {
	return binary.LittleEndian.Uint64(p.buf[offKeyStart:])
}

func (p nodePage[K, V]) elementSize() uint64 {
	return binary.LittleEndian.Uint64(p.buf[offElementSize:])
}

func (p nodePage[K, V]) elementStart() uint64 {
	return binary.LittleEndian.Uint64(p.buf[offElementStart:])
}

func (p nodePage[K, V]) next() types.ExtentID {
	return types.ExtentID(binary.LittleEndian.Uint64(p.buf[offNext:]))
}

func (p nodePage[K, V]) setNext(id types.ExtentID) {
	binary.LittleEndian.PutUint64(p.buf[offNext:], uint64(id))
}

// ── Formatting and validation ─────────────────────────────────────────────

// format writes a fresh header for an empty node of the given type,
// computing the layout invariants for the instantiated K and V. The page
// bytes beyond the header are expected to be zeroed already (Alloc
// guarantees that), which leaves every slot at the invalid sentinel.
func (p nodePage[K, V]) format(typ NodeType, pageSize uint32) error {
	keySize := uint64(unsafe.Sizeof(*new(K)))
	elementSize := uint64(types.ExtentIDSize)
	if typ == NodeLeaf {
		elementSize = uint64(unsafe.Sizeof(*new(V)))
	}

	available := int64(pageSize) - pageHeaderSize - int64(keySize+elementSize)
	maxElements := available / int64(keySize+elementSize)
	if maxElements < 3 {
		return fmt.Errorf("page size %d too small for key size %d and element size %d", pageSize, keySize, elementSize)
	}

	keyStart := uint64(pageHeaderSize)
	if keySize > keyStart {
		keyStart = keySize
	}
	keyEnd := keyStart + keySize*uint64(maxElements)
	elementStart := (keyEnd + elementSize - 1) / elementSize * elementSize
	if elementStart+elementSize*uint64(maxElements) > uint64(pageSize) {
		return fmt.Errorf("layout overflow: elements end past page size %d", pageSize)
	}

	p.setTyp(typ)
	binary.LittleEndian.PutUint32(p.buf[offMaxElements:], uint32(maxElements))
	p.setNumElements(0)
	binary.LittleEndian.PutUint64(p.buf[offKeySize:], keySize)
	binary.LittleEndian.PutUint64(p.buf[offKeyStart:], keyStart)
	binary.LittleEndian.PutUint64(p.buf[offElementSize:], elementSize)
	binary.LittleEndian.PutUint64(p.buf[offElementStart:], elementStart)
	p.setNext(types.InvalidExtentID)
	return nil
}

// validate checks a loaded page against the instantiated types and its own
// layout fields. Any mismatch means the page was written by a different
// instantiation, or is garbage.
func (p nodePage[K, V]) validate(pageSize uint32) error {
	typ := p.typ()
	if typ != NodeInternal && typ != NodeLeaf {
		return fmt.Errorf("unknown node type %d", typ)
	}

	wantElementSize := uint64(types.ExtentIDSize)
	if typ == NodeLeaf {
		wantElementSize = uint64(unsafe.Sizeof(*new(V)))
	}
	if p.keySize() != uint64(unsafe.Sizeof(*new(K))) || p.elementSize() != wantElementSize {
		return fmt.Errorf("key/element size mismatch: page has %d/%d, caller expects %d/%d",
			p.keySize(), p.elementSize(), unsafe.Sizeof(*new(K)), wantElementSize)
	}

	max := uint64(p.maxElements())
	if p.keyStart() < pageHeaderSize ||
		p.keyStart()+p.keySize()*max > p.elementStart() ||
		p.elementStart()+p.elementSize()*max > uint64(pageSize) {
		return fmt.Errorf("layout fields out of range")
	}
	if p.numElements() < 0 || p.numElements() > p.maxElements() {
		return fmt.Errorf("numElements %d out of range", p.numElements())
	}
	return nil
}

// ── Slot accessors ────────────────────────────────────────────────────────

func (p nodePage[K, V]) checkSlot(i int32) {
	if i < 0 || i >= p.maxElements() {
		panic(fmt.Sprintf("btree: slot %d out of range [0, %d)", i, p.maxElements()))
	}
}

func (p nodePage[K, V]) keyAt(i int32) K {
	p.checkSlot(i)
	off := p.keyStart() + uint64(i)*p.keySize()
	return *(*K)(unsafe.Pointer(&p.buf[off]))
}

func (p nodePage[K, V]) setKeyAt(i int32, k K) {
	p.checkSlot(i)
	off := p.keyStart() + uint64(i)*p.keySize()
	*(*K)(unsafe.Pointer(&p.buf[off])) = k
}

func (p nodePage[K, V]) childAt(i int32) types.ExtentID {
	p.checkSlot(i)
	off := p.elementStart() + uint64(i)*p.elementSize()
	return *(*types.ExtentID)(unsafe.Pointer(&p.buf[off]))
}

func (p nodePage[K, V]) setChildAt(i int32, id types.ExtentID) {
	p.checkSlot(i)
	off := p.elementStart() + uint64(i)*p.elementSize()
	*(*types.ExtentID)(unsafe.Pointer(&p.buf[off])) = id
}

func (p nodePage[K, V]) valueAt(i int32) V {
	p.checkSlot(i)
	off := p.elementStart() + uint64(i)*p.elementSize()
	return *(*V)(unsafe.Pointer(&p.buf[off]))
}

func (p nodePage[K, V]) setValueAt(i int32, v V) {
	p.checkSlot(i)
	off := p.elementStart() + uint64(i)*p.elementSize()
	*(*V)(unsafe.Pointer(&p.buf[off])) = v
}

// ── Block moves ───────────────────────────────────────────────────────────
//
// Shifts and cross-page copies move raw slot bytes with copy, which handles
// the overlapping ranges of in-place shifts.

func (p nodePage[K, V]) keyRange(i, n int32) []byte {
	start := p.keyStart() + uint64(i)*p.keySize()
	return p.buf[start : start+uint64(n)*p.keySize()]
}

func (p nodePage[K, V]) elementRange(i, n int32) []byte {
	start := p.elementStart() + uint64(i)*p.elementSize()
	return p.buf[start : start+uint64(n)*p.elementSize()]
}

// shiftKeysRight moves keys [i, num) one slot right.
func (p nodePage[K, V]) shiftKeysRight(i, num int32) {
	copy(p.keyRange(i+1, num-i), p.keyRange(i, num-i))
}

// shiftKeysLeft moves keys [i+1, num) one slot left, dropping key i.
func (p nodePage[K, V]) shiftKeysLeft(i, num int32) {
	copy(p.keyRange(i, num-i-1), p.keyRange(i+1, num-i-1))
}

// shiftElementsRight moves elements [i, num) one slot right.
func (p nodePage[K, V]) shiftElementsRight(i, num int32) {
	copy(p.elementRange(i+1, num-i), p.elementRange(i, num-i))
}

// shiftElementsLeft moves elements [i+1, num) one slot left, dropping
// element i.
func (p nodePage[K, V]) shiftElementsLeft(i, num int32) {
	copy(p.elementRange(i, num-i-1), p.elementRange(i+1, num-i-1))
}

// moveKeys copies n keys from src starting at srcIdx into p at dstIdx.
func (p nodePage[K, V]) moveKeys(dstIdx int32, src nodePage[K, V], srcIdx, n int32) {
	copy(p.keyRange(dstIdx, n), src.keyRange(srcIdx, n))
}

// moveElements copies n elements from src starting at srcIdx into p at
// dstIdx.
func (p nodePage[K, V]) moveElements(dstIdx int32, src nodePage[K, V], srcIdx, n int32) {
	copy(p.elementRange(dstIdx, n), src.elementRange(srcIdx, n))
}

// zeroElements resets elements [i, i+n) to the invalid sentinel.
func (p nodePage[K, V]) zeroElements(i, n int32) {
	clear(p.elementRange(i, n))
}

// zeroKeys resets keys [i, i+n) to zero.
func (p nodePage[K, V]) zeroKeys(i, n int32) {
	clear(p.keyRange(i, n))
}
