// Released under an MIT license. See LICENSE.

package core

// SFlag holds a series node's header bits.
type SFlag uint16

const (
	// SFlagManaged marks a series owned by the garbage collector. Once
	// set, the series may only be freed by the collector.
	SFlagManaged SFlag = 1 << iota

	// SFlagMarked is the collector's reachability bit.
	SFlagMarked

	// SFlagArray marks a series whose elements are cells.
	SFlagArray

	// SFlagFreed marks a node whose storage has been returned. Touching a
	// freed node is corruption.
	SFlagFreed

	// SFlagInaccessible preserves a node's identity after its storage has
	// been released. Reads fail with an inaccessible error.
	SFlagInaccessible

	// SFlagProtected marks a read-only series.
	SFlagProtected

	// SFlagParamlist, SFlagVarlist, and SFlagPairlist distinguish the
	// cell-array subclasses.
	SFlagParamlist
	SFlagVarlist
	SFlagPairlist

	// SFlagVoidsLegal permits void cells as array elements. Reified
	// variadic feeds set it.
	SFlagVoidsLegal

	// SFlagPairing marks a two-cell node allocated in a single node slot.
	// Pairings use a distinct sweep path.
	SFlagPairing

	// SFlagFrameLive marks a varlist whose slots are on the call stack.
	SFlagFrameLive
)

// Series element widths. A width of widthCell means the elements are cells.
const (
	WidthByte = 1
	WidthWide = 2
	WidthQuad = 4
	widthCell = 255
)

// Series is a heap node: a variably-widthed backing allocation shared by
// any number of cell views. The series is the value; a cell holding
// (series, index) is a view into it. Buffers may move when the series
// grows, but views stay valid because they go through the node.
type Series struct {
	flags SFlag
	width uint8

	data  []byte   // width 1 elements
	wide  []uint16 // width 2 elements
	quads []uint32 // width 4 elements
	cells []Cell   // cell elements, including the end terminator

	// inline backs singular arrays and pairings without a dynamic buffer.
	inline [2]Cell

	// link and misc are interpreted per subclass: keylist, facade,
	// hashlist, owning frame, meta.
	link *Series
	misc any
}

// Width returns the series element width in bytes.
func (s *Series) Width() int {
	if s.width == widthCell {
		return cellWidth
	}

	return int(s.width)
}

const cellWidth = 4 * 8 // nominal four machine words

// IsArray returns true if the series elements are cells.
func (s *Series) IsArray() bool {
	return s.flags&SFlagArray != 0
}

// Managed returns true if the collector owns the series.
func (s *Series) Managed() bool {
	return s.flags&SFlagManaged != 0
}

// Inaccessible returns true if the series storage has been released while
// preserving the node identity.
func (s *Series) Inaccessible() bool {
	return s.flags&SFlagInaccessible != 0
}

// Protected returns true if the series is read-only.
func (s *Series) Protected() bool {
	return s.flags&SFlagProtected != 0
}

// Protect marks the series read-only.
func (s *Series) Protect() {
	s.flags |= SFlagProtected
}

// Unprotect clears the read-only mark.
func (s *Series) Unprotect() {
	s.flags &^= SFlagProtected
}

// HasFlag returns true if every bit of f is set on s.
func (s *Series) HasFlag(f SFlag) bool {
	return s.flags&f == f
}

// SetFlag sets the bits of f on s.
func (s *Series) SetFlag(f SFlag) {
	s.flags |= f
}

// Link returns the subclass link slot (keylist, facade, hashlist).
func (s *Series) Link() *Series {
	return s.link
}

// SetLink sets the subclass link slot.
func (s *Series) SetLink(l *Series) {
	s.link = l
}

// Misc returns the subclass misc slot (meta, owning frame).
func (s *Series) Misc() any {
	return s.misc
}

// SetMisc sets the subclass misc slot.
func (s *Series) SetMisc(m any) {
	s.misc = m
}

func (s *Series) mustLive() {
	if s.flags&SFlagFreed != 0 {
		panic("access to freed series node")
	}

	if s.flags&SFlagInaccessible != 0 {
		panic("access to inaccessible series; callers must check first")
	}
}

// Len returns the number of elements in the series.
func (s *Series) Len() int {
	s.mustLive()

	switch s.width {
	case widthCell:
		if s.flags&SFlagPairing != 0 {
			return 2
		}

		return len(s.cells) - 1 // exclude the terminator
	case WidthByte:
		return len(s.data)
	case WidthWide:
		return len(s.wide)
	case WidthQuad:
		return len(s.quads)
	}

	panic("series node with corrupt width")
}

// At returns a pointer to the cell at index i. Index Len() addresses the
// end terminator. Only legal on cell arrays.
func (s *Series) At(i int) *Cell {
	s.mustLive()

	if s.width != widthCell {
		panic("cell access to non-array series")
	}

	return &s.cells[i]
}

// Head returns a pointer to the first cell (which is the terminator for an
// empty array).
func (s *Series) Head() *Cell {
	return s.At(0)
}

// Tail returns a pointer to the end terminator.
func (s *Series) Tail() *Cell {
	return s.At(s.Len())
}

// Byte and wide element access for string and binary series.

// ByteAt returns the element at index i of a width-1 series.
func (s *Series) ByteAt(i int) byte {
	s.mustLive()

	return s.data[i]
}

// Rune returns the codepoint at index i of a string series of any width.
func (s *Series) Rune(i int) rune {
	s.mustLive()

	switch s.width {
	case WidthByte:
		return rune(s.data[i])
	case WidthWide:
		return rune(s.wide[i])
	}

	panic("rune access to non-string series")
}

// setRune writes the codepoint r at index i. The series must already be
// wide enough; widening is the caller's concern.
func (s *Series) setRune(i int, r rune) {
	switch s.width {
	case WidthByte:
		if r > 0xFF {
			panic("narrow series write needs widening first")
		}

		s.data[i] = byte(r)
	case WidthWide:
		s.wide[i] = uint16(r)
	default:
		panic("rune write to non-string series")
	}
}

// Bytes returns the raw byte storage of a width-1 series.
func (s *Series) Bytes() []byte {
	s.mustLive()

	if s.width != WidthByte {
		panic("byte access to non-byte series")
	}

	return s.data
}

// singular returns true if the array storage is the inline payload.
func (s *Series) singular() bool {
	return s.width == widthCell && len(s.cells) > 0 && &s.cells[0] == &s.inline[0]
}

// Heap owns the series node pool, the guarded-root stacks, the API roots,
// and the allocation ballast that triggers collection.
type Heap struct {
	nodes []*Series

	ballast     int
	ballastInit int

	guards   []guardEntry
	apiRoots []*Series

	marks []*Series // reused mark queue

	recycling bool
	pending   bool
}

type guardEntry struct {
	series *Series
	cell   *Cell
}

const defaultBallast = 3000

// NewHeap creates an empty series heap.
func NewHeap() *Heap {
	return &Heap{ballast: defaultBallast, ballastInit: defaultBallast}
}

// GuardDepth returns the current height of the guarded-root stack. Frames
// record it at entry so unwinding can restore it.
func (h *Heap) GuardDepth() int {
	return len(h.guards)
}

// Guard pushes a root reference for the series s so a temporary unmanaged
// allocation survives across allocations that may trigger collection.
func (h *Heap) Guard(s *Series) {
	h.guards = append(h.guards, guardEntry{series: s})
}

// GuardCell pushes a root reference for the cell c.
func (h *Heap) GuardCell(c *Cell) {
	h.guards = append(h.guards, guardEntry{cell: c})
}

// Unguard pops the most recent guard, which must be the series s.
func (h *Heap) Unguard(s *Series) {
	top := len(h.guards) - 1
	if top < 0 || h.guards[top].series != s {
		panic("unguard out of order")
	}

	h.guards = h.guards[:top]
}

// UnguardCell pops the most recent guard, which must be the cell c.
func (h *Heap) UnguardCell(c *Cell) {
	top := len(h.guards) - 1
	if top < 0 || h.guards[top].cell != c {
		panic("unguard out of order")
	}

	h.guards = h.guards[:top]
}

// TrimGuards drops guards above depth. Used when a frame unwinds.
func (h *Heap) TrimGuards(depth int) {
	if depth > len(h.guards) {
		panic("guard stack shallower than recorded depth")
	}

	h.guards = h.guards[:depth]
}

// newNode allocates an unmanaged node of the given width. The caller must
// free, guard, or manage it.
func (h *Heap) newNode(width uint8, capHint int) *Series {
	h.ballast--

	s := &Series{width: width}

	switch width {
	case widthCell:
		s.flags |= SFlagArray

		if capHint <= 1 {
			// Singular array: inline payload, no dynamic buffer.
			s.cells = s.inline[:1:2]
		} else {
			s.cells = make([]Cell, 1, capHint+1)
		}

		s.cells[0] = End()
	case WidthByte:
		s.data = make([]byte, 0, capHint)
	case WidthWide:
		s.wide = make([]uint16, 0, capHint)
	case WidthQuad:
		s.quads = make([]uint32, 0, capHint)
	default:
		panic("unsupported series width")
	}

	h.nodes = append(h.nodes, s)

	return s
}

// newPairing allocates an unmanaged two-cell node.
func (h *Heap) newPairing() *Series {
	h.ballast--

	s := &Series{width: widthCell, flags: SFlagArray | SFlagPairing}
	s.cells = s.inline[:2:2]
	s.cells[0].Prep()
	s.cells[1].Prep()

	h.nodes = append(h.nodes, s)

	return s
}

// Manage hands the series to the collector. From this call onward the
// series must never be manually freed.
func (h *Heap) Manage(s *Series) {
	s.mustLive()
	s.flags |= SFlagManaged
}

// Free returns an unmanaged node's storage. Freeing a managed node is a
// corruption-class error; only the collector disposes of managed series.
func (h *Heap) Free(s *Series) {
	if s.flags&SFlagManaged != 0 {
		panic("manual free of managed series")
	}

	h.release(s)
}

// release drops a node's storage and flags it freed. The node stays in the
// pool until the next sweep compacts it away.
func (h *Heap) release(s *Series) {
	if s.flags&SFlagFreed != 0 {
		panic("double free of series node")
	}

	s.data = nil
	s.wide = nil
	s.quads = nil
	s.cells = nil
	s.link = nil
	s.misc = nil
	s.flags = SFlagFreed
}

// Decay frees the series' dynamic buffer but preserves its identity so
// stale references fail cleanly instead of dangling.
func (h *Heap) Decay(s *Series) {
	s.mustLive()

	s.data = nil
	s.wide = nil
	s.quads = nil
	s.cells = nil
	s.link = nil
	s.misc = nil
	s.flags |= SFlagInaccessible
}

// APIRoot allocates a managed pairing that keeps one cell alive on behalf
// of an outside caller. The first cell is the payload slot.
func (h *Heap) APIRoot() *Series {
	p := h.newPairing()
	p.flags |= SFlagManaged

	h.apiRoots = append(h.apiRoots, p)

	return p
}

// ReleaseAPIRoot drops the root reference for the pairing p. The next
// sweep reclaims it unless something else reaches it.
func (h *Heap) ReleaseAPIRoot(p *Series) {
	for i, r := range h.apiRoots {
		if r == p {
			h.apiRoots = append(h.apiRoots[:i], h.apiRoots[i+1:]...)

			return
		}
	}

	panic("release of unknown API root")
}

// Array mutation. These maintain the end terminator; cells past the
// logical length other than the terminator never exist.

// arrayExtend grows the array by n writable end-prepped slots before the
// terminator and returns the index of the first new slot.
func (s *Series) arrayExtend(n int) int {
	s.mustLive()

	if s.width != widthCell {
		panic("array extension of non-array series")
	}

	if s.flags&SFlagPairing != 0 {
		panic("array extension of pairing")
	}

	at := s.Len()

	if s.singular() && at+n+1 > cap(s.cells) {
		// De-inline before growing past the inline payload.
		fresh := make([]Cell, len(s.cells), at+n+1)
		copy(fresh, s.cells)
		s.cells = fresh
	}

	for i := 0; i < n; i++ {
		s.cells = append(s.cells, Cell{})
	}

	// The old terminator slot becomes the first fresh slot; the new tail
	// becomes the terminator.
	for i := at; i < at+n; i++ {
		s.cells[i].Prep()
	}

	s.cells[at+n] = End()

	return at
}

// Append copies v onto the tail of the array s.
func (s *Series) Append(v *Cell) {
	at := s.arrayExtend(1)
	s.cells[at].Copy(v)
}

// Insert copies v into the array s at index i, shifting later elements.
func (s *Series) Insert(i int, v *Cell) {
	if i > s.Len() {
		panic("insert index out of range")
	}

	at := s.arrayExtend(1)

	copy(s.cells[i+1:at+1], s.cells[i:at])
	s.cells[i].Prep()
	s.cells[i].Copy(v)
}

// Terminate writes the end sentinel after the last element. The invariant
// is maintained by every mutator; Terminate re-asserts it before an array
// is handed to an observer.
func (s *Series) Terminate() {
	s.mustLive()

	if s.width != widthCell || s.flags&SFlagPairing != 0 {
		return
	}

	s.cells[len(s.cells)-1] = End()
}

// AppendByte appends b to a width-1 series.
func (s *Series) AppendByte(b byte) {
	s.mustLive()
	s.data = append(s.data, b)
}

// AppendQuad appends q to a width-4 series.
func (s *Series) AppendQuad(q uint32) {
	s.mustLive()
	s.quads = append(s.quads, q)
}
