// Package page implements the fixed-size, slotted on-disk page: a 40-byte
// header followed by a buffer holding cell pointers that grow up from the
// front and cell payloads that grow down from the back. This is the unit of
// I/O the pager reads and writes; everything above it (the B-tree, the
// table store) addresses data in terms of page id and cell position only.
package page

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/embeddb/embeddb/internal/codec"
)

// PageSize is the total on-disk footprint of a page, header included.
const PageSize = 16 * 1024

// HeaderSize is the fixed byte length of Header, verified by
// TestPageHeaderLayout.
const HeaderSize = 40

// BufferSize is how many bytes remain in a page for cell pointers and cell
// payloads after the header.
const BufferSize = PageSize - HeaderSize

// CellPointerSize is the encoded size of one CellPointer entry.
const CellPointerSize = 4

// HeaderVersion is the only header layout version this package writes or
// accepts.
const HeaderVersion uint8 = 1

// AlignmentGuard is a fixed magic value stored in every header, used to
// detect a page read at the wrong offset or from a foreign file format.
const AlignmentGuard uint32 = 0x3241_2F2D

// Flag bits packed into Header.Flags.
const (
	FlagDirty       uint8 = 1 << 0
	FlagCompactible uint8 = 1 << 1
)

// Kind distinguishes page roles. Only Data is defined today; the type
// exists so a future index/overflow page kind doesn't require a layout
// change.
type Kind uint8

const (
	KindData Kind = iota
)

// Err is page's sentinel error kind, matched with errors.Is.
type Err string

func (e Err) Error() string { return string(e) }

const (
	ErrNotEnoughSpace  Err = "page: not enough free space for cell"
	ErrCorrupted       Err = "page: checksum mismatch"
	ErrBadAlignment    Err = "page: alignment guard mismatch"
	ErrBadVersion      Err = "page: unsupported header version"
	ErrPositionOOB     Err = "page: cell position out of bounds"
	ErrShortIO         Err = "page: short read or write"
)

// Header is the fixed 40-byte page header. Field order here is the wire
// order; do not reorder without bumping HeaderVersion.
type Header struct {
	Checksum       uint64
	HeaderVersion  uint8
	Flags          uint8
	PageKind       Kind
	AlignmentGuard uint32
	PageID         uint64
	OverflowPageID uint64 // 0 means no overflow page
	CellCount      uint16
	FreeSpaceStart uint16
	FreeSpaceEnd   uint16
	TotalFreeSpace uint16
}

// CellPointer is one 4-byte slot-directory entry: where a cell's payload
// ends in the buffer, and how large it is. end_offset - size is where the
// payload begins.
type CellPointer struct {
	EndOffset uint16
	Size      uint16
}

// Page is one in-memory resident copy of an on-disk page.
type Page struct {
	Header Header
	buf    [BufferSize]byte
}

// New allocates a fresh, empty page of the given kind for page id.
func New(id uint64, kind Kind) *Page {
	p := &Page{}
	p.Header = Header{
		HeaderVersion:  HeaderVersion,
		PageKind:       kind,
		AlignmentGuard: AlignmentGuard,
		PageID:         id,
		FreeSpaceStart: 0,
		FreeSpaceEnd:   uint16(BufferSize),
		TotalFreeSpace: uint16(BufferSize),
	}
	return p
}

func (p *Page) IsDirty() bool       { return p.Header.Flags&FlagDirty != 0 }
func (p *Page) IsCompactible() bool { return p.Header.Flags&FlagCompactible != 0 }

func (p *Page) setFlag(bit uint8, on bool) {
	if on {
		p.Header.Flags |= bit
	} else {
		p.Header.Flags &^= bit
	}
}

func (p *Page) setDirty(on bool)       { p.setFlag(FlagDirty, on) }
func (p *Page) setCompactible(on bool) { p.setFlag(FlagCompactible, on) }

// CellCount reports the number of live cells.
func (p *Page) CellCount() int { return int(p.Header.CellCount) }

func (p *Page) pointerOffset(position int) int { return position * CellPointerSize }

func (p *Page) readPointer(position int) CellPointer {
	off := p.pointerOffset(position)
	return CellPointer{
		EndOffset: leU16(p.buf[off : off+2]),
		Size:      leU16(p.buf[off+2 : off+4]),
	}
}

func (p *Page) writePointer(position int, ptr CellPointer) {
	off := p.pointerOffset(position)
	putLeU16(p.buf[off:off+2], ptr.EndOffset)
	putLeU16(p.buf[off+2:off+4], ptr.Size)
}

// GetCellPointer returns the directory entry at position.
func (p *Page) GetCellPointer(position int) (CellPointer, error) {
	if position < 0 || position >= p.CellCount() {
		return CellPointer{}, ErrPositionOOB
	}
	return p.readPointer(position), nil
}

// GetCell returns a copy of the payload bytes stored at position.
func (p *Page) GetCell(position int) ([]byte, error) {
	ptr, err := p.GetCellPointer(position)
	if err != nil {
		return nil, err
	}
	start := int(ptr.EndOffset) - int(ptr.Size)
	out := make([]byte, ptr.Size)
	copy(out, p.buf[start:int(ptr.EndOffset)])
	return out, nil
}

// InsertCell inserts data as a new cell at the given logical position,
// shifting existing pointers at or after position to the right. It
// defragments the page automatically if total free space would suffice but
// the gap between the pointer array and the payload area does not.
func (p *Page) InsertCell(position int, data []byte) error {
	count := p.CellCount()
	if position < 0 || position > count {
		return ErrPositionOOB
	}
	need := CellPointerSize + len(data)
	if int(p.Header.TotalFreeSpace) < need {
		return ErrNotEnoughSpace
	}
	contiguous := int(p.Header.FreeSpaceEnd) - int(p.Header.FreeSpaceStart)
	if contiguous < need {
		p.Defragment()
	}

	p.makeRoomForPointer(position)

	payloadStart := int(p.Header.FreeSpaceEnd) - len(data)
	copy(p.buf[payloadStart:p.Header.FreeSpaceEnd], data)

	ptr := CellPointer{EndOffset: uint16(payloadStart) + uint16(len(data)), Size: uint16(len(data))}
	p.writePointer(position, ptr)

	p.Header.CellCount++
	p.Header.FreeSpaceStart += CellPointerSize
	p.Header.FreeSpaceEnd = uint16(payloadStart)
	p.Header.TotalFreeSpace -= uint16(need)
	p.setDirty(true)
	return nil
}

// RemoveCell deletes the cell at position, shifting later pointers left.
// The vacated payload bytes are reclaimed as fragmented free space and the
// page is marked compactible so a later InsertCell knows to defragment if
// it needs the room.
func (p *Page) RemoveCell(position int) error {
	ptr, err := p.GetCellPointer(position)
	if err != nil {
		return err
	}
	p.removePointer(position)
	p.Header.CellCount--
	p.Header.FreeSpaceStart -= CellPointerSize
	p.Header.TotalFreeSpace += CellPointerSize + ptr.Size
	p.setDirty(true)
	p.setCompactible(true)
	return nil
}

func (p *Page) makeRoomForPointer(position int) {
	count := p.CellCount()
	srcStart := p.pointerOffset(position)
	srcEnd := p.pointerOffset(count)
	dstStart := srcStart + CellPointerSize
	copy(p.buf[dstStart:dstStart+(srcEnd-srcStart)], p.buf[srcStart:srcEnd])
}

func (p *Page) removePointer(position int) {
	count := p.CellCount()
	srcStart := p.pointerOffset(position + 1)
	srcEnd := p.pointerOffset(count)
	dstStart := p.pointerOffset(position)
	copy(p.buf[dstStart:dstStart+(srcEnd-srcStart)], p.buf[srcStart:srcEnd])
}

// Defragment compacts every live cell's payload into one contiguous region
// ending at the buffer's high end, in pointer order, reclaiming any
// fragmentation left behind by prior removals.
func (p *Page) Defragment() {
	count := p.CellCount()
	if count == 0 {
		p.Header.FreeSpaceEnd = uint16(BufferSize)
		p.setCompactible(false)
		return
	}

	type cellCopy struct {
		size uint16
		data []byte
	}
	cells := make([]cellCopy, count)
	for i := 0; i < count; i++ {
		ptr := p.readPointer(i)
		data := make([]byte, ptr.Size)
		start := int(ptr.EndOffset) - int(ptr.Size)
		copy(data, p.buf[start:ptr.EndOffset])
		cells[i] = cellCopy{size: ptr.Size, data: data}
	}

	cursor := uint16(BufferSize)
	for i, c := range cells {
		start := cursor - c.size
		copy(p.buf[start:cursor], c.data)
		p.writePointer(i, CellPointer{EndOffset: cursor, Size: c.size})
		cursor = start
	}
	p.Header.FreeSpaceEnd = cursor
	p.setCompactible(false)
}

// checksum sums the page's bytes (header bytes [8:] plus the full buffer)
// as unsigned little-endian 64-bit words. The first 8 bytes of the header
// (the checksum field itself) are always excluded.
func checksum(headerBytes [HeaderSize]byte, buf [BufferSize]byte) uint64 {
	var sum uint64
	for i := 8; i+8 <= HeaderSize; i += 8 {
		sum += leU64(headerBytes[i : i+8])
	}
	for i := 0; i+8 <= BufferSize; i += 8 {
		sum += leU64(buf[i : i+8])
	}
	return sum
}

func (p *Page) headerBytes() [HeaderSize]byte {
	e := codec.NewEncoder(HeaderSize)
	e.WriteU64(p.Header.Checksum)
	e.WriteU8(p.Header.HeaderVersion)
	e.WriteU8(p.Header.Flags)
	e.WriteU8(0) // padding
	e.WriteU8(uint8(p.Header.PageKind))
	e.WriteU32(p.Header.AlignmentGuard)
	e.WriteU64(p.Header.PageID)
	e.WriteU64(p.Header.OverflowPageID)
	e.WriteU16(p.Header.CellCount)
	e.WriteU16(p.Header.FreeSpaceStart)
	e.WriteU16(p.Header.FreeSpaceEnd)
	e.WriteU16(p.Header.TotalFreeSpace)
	var out [HeaderSize]byte
	copy(out[:], e.Bytes())
	return out
}

func decodeHeader(b []byte) (Header, error) {
	d := codec.NewDecoder(b)
	var h Header
	var err error
	if h.Checksum, err = d.ReadU64(); err != nil {
		return h, err
	}
	if h.HeaderVersion, err = d.ReadU8(); err != nil {
		return h, err
	}
	if h.Flags, err = d.ReadU8(); err != nil {
		return h, err
	}
	if _, err = d.ReadU8(); err != nil { // padding
		return h, err
	}
	kind, err := d.ReadU8()
	if err != nil {
		return h, err
	}
	h.PageKind = Kind(kind)
	if h.AlignmentGuard, err = d.ReadU32(); err != nil {
		return h, err
	}
	if h.PageID, err = d.ReadU64(); err != nil {
		return h, err
	}
	if h.OverflowPageID, err = d.ReadU64(); err != nil {
		return h, err
	}
	if h.CellCount, err = d.ReadU16(); err != nil {
		return h, err
	}
	if h.FreeSpaceStart, err = d.ReadU16(); err != nil {
		return h, err
	}
	if h.FreeSpaceEnd, err = d.ReadU16(); err != nil {
		return h, err
	}
	if h.TotalFreeSpace, err = d.ReadU16(); err != nil {
		return h, err
	}
	return h, nil
}

// Bytes serializes the entire page (header + buffer) for writing to disk,
// recalculating the checksum over the current contents first.
func (p *Page) Bytes() [PageSize]byte {
	hb := p.headerBytes()
	p.Header.Checksum = checksum(hb, p.buf)
	hb = p.headerBytes()

	var out [PageSize]byte
	copy(out[:HeaderSize], hb[:])
	copy(out[HeaderSize:], p.buf[:])
	return out
}

// FromBytes reconstructs a Page from exactly PageSize bytes previously
// produced by Bytes, verifying the checksum and header invariants.
func FromBytes(raw []byte) (*Page, error) {
	if len(raw) != PageSize {
		return nil, fmt.Errorf("page: expected %d bytes, got %d", PageSize, len(raw))
	}
	var hb [HeaderSize]byte
	copy(hb[:], raw[:HeaderSize])
	h, err := decodeHeader(hb[:])
	if err != nil {
		return nil, err
	}
	if h.HeaderVersion != HeaderVersion {
		return nil, ErrBadVersion
	}
	if h.AlignmentGuard != AlignmentGuard {
		return nil, ErrBadAlignment
	}

	p := &Page{Header: h}
	copy(p.buf[:], raw[HeaderSize:])

	want := checksum(hb, p.buf)
	if want != h.Checksum {
		return nil, ErrCorrupted
	}
	return p, nil
}

// WriteToDisk writes the page at its PageID's offset (PageID * PageSize)
// within f, looping pwrite to handle short writes, and clears the dirty
// flag only after a full, successful write. The dirty flag is restored if
// the write fails partway so a caller can retry.
func (p *Page) WriteToDisk(f *os.File) error {
	wasDirty := p.IsDirty()
	p.setDirty(false)
	raw := p.Bytes()

	offset := int64(p.Header.PageID) * int64(PageSize)
	if err := writeFullAt(f, raw[:], offset); err != nil {
		p.setDirty(wasDirty)
		return err
	}
	return nil
}

// ReadFromDisk reads PageSize bytes at pageID's offset from f and
// reconstructs a verified Page.
func ReadFromDisk(f *os.File, pageID uint64) (*Page, error) {
	raw := make([]byte, PageSize)
	offset := int64(pageID) * int64(PageSize)
	if err := readFullAt(f, raw, offset); err != nil {
		return nil, err
	}
	return FromBytes(raw)
}

func writeFullAt(f *os.File, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := f.WriteAt(buf, offset)
		if err != nil && !errors.Is(err, io.ErrShortWrite) {
			return err
		}
		if n == 0 {
			return ErrShortIO
		}
		buf = buf[n:]
		offset += int64(n)
	}
	return nil
}

func readFullAt(f *os.File, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := f.ReadAt(buf, offset)
		if n > 0 {
			buf = buf[n:]
			offset += int64(n)
		}
		if err != nil {
			if err == io.EOF && len(buf) == 0 {
				return nil
			}
			return err
		}
	}
	return nil
}

func leU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func putLeU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
