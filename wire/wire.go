// Package wire is the Wire Codec: it serializes one RemoteBucket into a
// byte buffer with explicit alignment padding, and parses the same
// buffer back into the tree/class/element groups Ghost Index ingestion
// expects (spec §4.6).
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/notargets/forestghost/forest"
	"github.com/notargets/forestghost/ghostindex"
	"github.com/notargets/forestghost/remoteindex"
	"github.com/notargets/forestghost/scheme"
)

// Fixed-width integer sizes for the three header fields the format
// uses. global_id_int is signed (global tree ids may be negative
// sentinels upstream of the wire, though never on the wire itself);
// size_int and class_int are unsigned. Byte order is big-endian,
// matching scheme.MortonScheme's own element encoding, so a raw buffer
// dump sorts the same way its numeric fields compare.
const (
	sizeIntWidth    = 8 // uint64
	globalIDWidth   = 8 // int64
	classIntWidth   = 4 // uint32

	sizeIntAlign  = 8
	globalIDAlign = 8
	classIntAlign = 4
)

// padTo returns the smallest n >= offset such that n is a multiple of
// align. align must be a power of two, as every alignment used by this
// codec is.
func padTo(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func putUint64(buf []byte, off int, v uint64) int {
	binary.BigEndian.PutUint64(buf[off:off+8], v)
	return off + 8
}

func putInt64(buf []byte, off int, v int64) int {
	return putUint64(buf, off, uint64(v))
}

func putUint32(buf []byte, off int, v uint32) int {
	binary.BigEndian.PutUint32(buf[off:off+4], v)
	return off + 4
}

func getUint64(buf []byte, off int) (uint64, int) {
	return binary.BigEndian.Uint64(buf[off : off+8]), off + 8
}

func getInt64(buf []byte, off int) (int64, int) {
	v, next := getUint64(buf, off)
	return int64(v), next
}

func getUint32(buf []byte, off int) (uint32, int) {
	return binary.BigEndian.Uint32(buf[off : off+4]), off + 4
}

// encodedSize computes the exact byte length the encoding of bucket
// will occupy, including every pad gap, by replaying the same
// running-offset arithmetic Encode uses. Encode and this function must
// never diverge: both are driven by the same padTo calls in the same
// order.
func encodedSize(bucket *remoteindex.Bucket, reg *scheme.Registry) int {
	off := 0
	off += sizeIntWidth // num_trees
	for _, tree := range bucket.Trees {
		off = padTo(off, globalIDAlign)
		off += globalIDWidth // global_id
		off = padTo(off, classIntAlign)
		off += classIntWidth // class
		off = padTo(off, sizeIntAlign)
		off += sizeIntWidth // num_elems
		elemSize := reg.For(tree.Class).Size()
		off = padTo(off, elemAlign(elemSize))
		off += len(tree.Elements) * elemSize
	}
	off = padTo(off, globalIDAlign)
	return off
}

// elemAlign is the alignment an element buffer of the given size is
// packed to. Element bytes carry no internal alignment requirement of
// their own beyond byte granularity, but the format still rounds the
// offset preceding them up to globalIDAlign so that a reader scanning
// tree headers without decoding element payloads stays word-aligned;
// matching Size() keeps small single-byte-class buffers from padding
// needlessly.
func elemAlign(elemSize int) int {
	if elemSize >= globalIDAlign {
		return globalIDAlign
	}
	return 1
}

// Encode serializes bucket per the §4.6 layout. The returned buffer's
// length equals encodedSize(bucket, reg); Encode verifies this itself
// before returning, matching the codec's "verify on writing and on
// parsing" requirement.
func Encode(bucket *remoteindex.Bucket, reg *scheme.Registry) ([]byte, error) {
	total := encodedSize(bucket, reg)
	buf := make([]byte, total)

	off := putUint64(buf, 0, uint64(len(bucket.Trees)))
	for _, tree := range bucket.Trees {
		off = zeroPad(buf, off, globalIDAlign)
		off = putInt64(buf, off, int64(tree.GlobalID))
		off = zeroPad(buf, off, classIntAlign)
		off = putUint32(buf, off, uint32(tree.Class))
		off = zeroPad(buf, off, sizeIntAlign)
		off = putUint64(buf, off, uint64(len(tree.Elements)))

		elemSize := reg.For(tree.Class).Size()
		off = zeroPad(buf, off, elemAlign(elemSize))
		for _, e := range tree.Elements {
			if len(e) != elemSize {
				return nil, fmt.Errorf("wire: encode: tree %d class %s element has %d bytes, scheme expects %d", tree.GlobalID, tree.Class, len(e), elemSize)
			}
			copy(buf[off:off+elemSize], e)
			off += elemSize
		}
	}
	off = zeroPad(buf, off, globalIDAlign)

	if off != total {
		return nil, fmt.Errorf("wire: encode: wrote %d bytes, expected %d", off, total)
	}
	return buf, nil
}

// zeroPad advances off to the next alignment boundary; the bytes
// skipped are already zero because buf was freshly allocated.
func zeroPad(buf []byte, off, align int) int {
	return padTo(off, align)
}

// Decode parses a buffer produced by Encode back into one
// ghostindex.RunEntry per tree, in the original tree order. It returns
// an error, not a panic, on a truncated or mis-sized buffer: the buffer
// crosses a process boundary and is not trusted the way an in-process
// index is. A class value with no scheme in reg still panics, in
// Registry.For.
func Decode(buf []byte, reg *scheme.Registry) ([]ghostindex.RunEntry, error) {
	if len(buf) < sizeIntWidth {
		return nil, fmt.Errorf("wire: decode: buffer too short for header (%d bytes)", len(buf))
	}
	numTrees, off := getUint64(buf, 0)

	entries := make([]ghostindex.RunEntry, 0, numTrees)
	for i := uint64(0); i < numTrees; i++ {
		var err error
		off, err = requireLen(buf, off, globalIDAlign, globalIDWidth)
		if err != nil {
			return nil, err
		}
		gid, next := getInt64(buf, off)
		off = next

		off, err = requireLen(buf, off, classIntAlign, classIntWidth)
		if err != nil {
			return nil, err
		}
		classVal, next2 := getUint32(buf, off)
		off = next2
		class := scheme.Class(classVal)

		off, err = requireLen(buf, off, sizeIntAlign, sizeIntWidth)
		if err != nil {
			return nil, err
		}
		numElems, next3 := getUint64(buf, off)
		off = next3

		sch := reg.For(class)
		elemSize := sch.Size()
		off = padTo(off, elemAlign(elemSize))

		byteLen := int(numElems) * elemSize
		if off+byteLen > len(buf) {
			return nil, fmt.Errorf("wire: decode: tree %d needs %d element bytes at offset %d, buffer has %d", gid, byteLen, off, len(buf))
		}

		elems := sch.New(int(numElems))
		for e := 0; e < int(numElems); e++ {
			start := off + e*elemSize
			copy(elems[e], buf[start:start+elemSize])
		}
		off += byteLen

		entries = append(entries, ghostindex.RunEntry{
			GlobalID: forest.GlobalTreeID(gid),
			Class:    class,
			Elements: elems,
		})
	}

	off = padTo(off, globalIDAlign)
	if off != len(buf) {
		return nil, fmt.Errorf("wire: decode: consumed %d bytes, buffer has %d", off, len(buf))
	}
	return entries, nil
}

func requireLen(buf []byte, off, align, width int) (int, error) {
	off = padTo(off, align)
	if off+width > len(buf) {
		return 0, fmt.Errorf("wire: decode: truncated buffer at offset %d (need %d more bytes)", off, width)
	}
	return off, nil
}
