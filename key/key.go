// Package key derives stable, collision-resistant cache keys from
// arbitrary call arguments.
//
// Arguments are folded into a 64-bit xxhash digest over a type-tagged
// canonical encoding, so the integer 1 and the string "1" never
// collide. The encoding covers a small closed variant set:
//
//   - scalars (bool, integers, floats, complex, strings, []byte)
//   - ordered containers (slices, arrays, structs by exported field)
//   - unordered containers (maps, hashed by sorted element digest)
//   - values implementing Keyer, or types with a registered encoder
//   - identity fallback for reference kinds with no natural
//     serialisation (funcs, channels): the address is hashed, so only
//     the same instance deduplicates, never structurally equal ones
//
// Derivation never fails: a value outside the variant set still
// produces a deterministic key for the duration of the run.
package key

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Keyer lets a type supply its own canonical key fragment.
type Keyer interface {
	CacheKey() string
}

// maxDepth caps recursion so cyclic values degrade to an identity key
// instead of hanging.
const maxDepth = 32

// Encoding tags. Each variant writes its tag before its payload so
// values of different shapes never produce the same byte stream.
const (
	tagNil      = 'n'
	tagBool     = 'b'
	tagInt      = 'i'
	tagUint     = 'u'
	tagFloat    = 'f'
	tagComplex  = 'c'
	tagString   = 's'
	tagBytes    = 'y'
	tagList     = 'L'
	tagMap      = 'M'
	tagStruct   = 'T'
	tagPtr      = 'p'
	tagKeyer    = 'K'
	tagEncoder  = 'R'
	tagIdentity = 'I'
	tagOpaque   = 'F'
)

var (
	encMu    sync.RWMutex
	encoders = map[reflect.Type]func(any) []byte{}

	keyerType = reflect.TypeOf((*Keyer)(nil)).Elem()
)

// Register installs a canonical encoder for T, extending the variant
// set without reflection over T's internals. The encoder must be pure:
// equal values must yield equal bytes.
func Register[T any](enc func(T) []byte) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	encMu.Lock()
	encoders[t] = func(v any) []byte { return enc(v.(T)) }
	encMu.Unlock()
}

// Of derives the key for the given arguments. Order is significant.
func Of(args ...any) string {
	return OfSkip(0, args...)
}

// OfSkip is Of ignoring the first skip arguments (used to drop receiver
// arguments from method keys).
func OfSkip(skip int, args ...any) string {
	if skip > 0 {
		if skip >= len(args) {
			args = nil
		} else {
			args = args[skip:]
		}
	}
	d := xxhash.New()
	writeUvarint(d, uint64(len(args)))
	for _, a := range args {
		writeValue(d, reflect.ValueOf(a), 0)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func writeValue(d *xxhash.Digest, v reflect.Value, depth int) {
	if !v.IsValid() {
		writeTag(d, tagNil)
		return
	}
	if depth > maxDepth {
		writeIdentity(d, v)
		return
	}

	if v.CanInterface() {
		encMu.RLock()
		enc, ok := encoders[v.Type()]
		encMu.RUnlock()
		if ok {
			writeTag(d, tagEncoder)
			writeString(d, v.Type().String())
			writeBytes(d, enc(v.Interface()))
			return
		}
		if v.Type().Implements(keyerType) {
			if v.Kind() == reflect.Pointer && v.IsNil() {
				writeTag(d, tagNil)
				return
			}
			writeTag(d, tagKeyer)
			writeString(d, v.Interface().(Keyer).CacheKey())
			return
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		writeTag(d, tagBool)
		if v.Bool() {
			writeTag(d, 1)
		} else {
			writeTag(d, 0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeTag(d, tagInt)
		writeUint64(d, uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		writeTag(d, tagUint)
		writeUint64(d, v.Uint())
	case reflect.Float32, reflect.Float64:
		writeTag(d, tagFloat)
		writeUint64(d, math.Float64bits(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		writeTag(d, tagComplex)
		writeUint64(d, math.Float64bits(real(c)))
		writeUint64(d, math.Float64bits(imag(c)))
	case reflect.String:
		writeTag(d, tagString)
		writeString(d, v.String())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			writeTag(d, tagNil)
			return
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			writeTag(d, tagBytes)
			writeBytes(d, byteSlice(v))
			return
		}
		writeTag(d, tagList)
		writeUvarint(d, uint64(v.Len()))
		for i := 0; i < v.Len(); i++ {
			writeValue(d, v.Index(i), depth+1)
		}
	case reflect.Map:
		if v.IsNil() {
			writeTag(d, tagNil)
			return
		}
		// Unordered: hash each pair separately, then fold the sorted
		// pair digests so iteration order cannot leak into the key.
		writeTag(d, tagMap)
		writeUvarint(d, uint64(v.Len()))
		sums := make([]uint64, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			pd := xxhash.New()
			writeValue(pd, iter.Key(), depth+1)
			writeValue(pd, iter.Value(), depth+1)
			sums = append(sums, pd.Sum64())
		}
		slices.Sort(sums)
		for _, s := range sums {
			writeUint64(d, s)
		}
	case reflect.Struct:
		writeTag(d, tagStruct)
		t := v.Type()
		writeString(d, t.String())
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			writeString(d, t.Field(i).Name)
			writeValue(d, v.Field(i), depth+1)
		}
	case reflect.Pointer:
		if v.IsNil() {
			writeTag(d, tagNil)
			return
		}
		// Pointers key by their pointee: a freshly allocated but equal
		// argument still hits.
		writeTag(d, tagPtr)
		writeValue(d, v.Elem(), depth+1)
	case reflect.Interface:
		if v.IsNil() {
			writeTag(d, tagNil)
			return
		}
		writeValue(d, v.Elem(), depth+1)
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		writeIdentity(d, v)
	default:
		// Last resort: deterministic within the run.
		writeTag(d, tagOpaque)
		writeString(d, v.Type().String())
		writeString(d, fmt.Sprintf("%v", v))
	}
}

// writeIdentity keys a value by its address: only the same instance
// ever deduplicates.
func writeIdentity(d *xxhash.Digest, v reflect.Value) {
	writeTag(d, tagIdentity)
	writeString(d, v.Type().String())
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		writeUint64(d, uint64(v.Pointer()))
	default:
		writeString(d, fmt.Sprintf("%v", v))
	}
}

// byteSlice copies array-backed byte sequences that cannot be sliced
// directly.
func byteSlice(v reflect.Value) []byte {
	if v.Kind() == reflect.Slice && v.CanInterface() {
		if b, ok := v.Interface().([]byte); ok {
			return b
		}
	}
	b := make([]byte, v.Len())
	for i := range b {
		b[i] = byte(v.Index(i).Uint())
	}
	return b
}

func writeTag(d *xxhash.Digest, tag byte) { _, _ = d.Write([]byte{tag}) }

func writeUint64(d *xxhash.Digest, x uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	_, _ = d.Write(buf[:])
}

func writeUvarint(d *xxhash.Digest, x uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], x)
	_, _ = d.Write(buf[:n])
}

func writeString(d *xxhash.Digest, s string) {
	writeUvarint(d, uint64(len(s)))
	_, _ = d.WriteString(s)
}

func writeBytes(d *xxhash.Digest, b []byte) {
	writeUvarint(d, uint64(len(b)))
	_, _ = d.Write(b)
}
