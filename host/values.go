package host

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/wasmlink/ffigen/abi"
	"github.com/wasmlink/ffigen/errors"
)

// encodeNum packs a host numeric value into a raw slot word. Signed
// values keep their two's complement bit pattern in the low bits.
func encodeNum(kind abi.PrimType, v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	switch kind {
	case abi.F32:
		if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
			return 0, badValue(kind, v)
		}
		return uint64(math.Float32bits(float32(rv.Float()))), nil
	case abi.F64:
		if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
			return 0, badValue(kind, v)
		}
		return math.Float64bits(rv.Float()), nil
	case abi.I8, abi.I16, abi.I32, abi.I64, abi.Isize:
		if !rv.CanInt() {
			return 0, badValue(kind, v)
		}
		switch kind {
		case abi.I8:
			return uint64(uint32(int32(int8(rv.Int())))), nil
		case abi.I16:
			return uint64(uint32(int32(int16(rv.Int())))), nil
		case abi.I32:
			return uint64(uint32(int32(rv.Int()))), nil
		default:
			return uint64(rv.Int()), nil
		}
	case abi.Bool:
		b, ok := v.(bool)
		if !ok {
			return 0, badValue(kind, v)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case abi.U8, abi.U16, abi.U32, abi.U64, abi.Usize:
		if !rv.CanUint() {
			if rv.CanInt() && rv.Int() >= 0 {
				return uint64(rv.Int()), nil
			}
			return 0, badValue(kind, v)
		}
		return rv.Uint(), nil
	default:
		return 0, badValue(kind, v)
	}
}

// decodeNum unpacks a raw slot word into the host value for kind.
func decodeNum(kind abi.PrimType, raw uint64) any {
	switch kind {
	case abi.U8:
		return uint8(raw)
	case abi.U16:
		return uint16(raw)
	case abi.U32:
		return uint32(raw)
	case abi.U64:
		return raw
	case abi.Usize:
		return uint(raw)
	case abi.I8:
		return int8(raw)
	case abi.I16:
		return int16(raw)
	case abi.I32:
		return int32(uint32(raw))
	case abi.I64:
		return int64(raw)
	case abi.Isize:
		return int(int64(raw))
	case abi.F32:
		return math.Float32frombits(uint32(raw))
	case abi.F64:
		return math.Float64frombits(raw)
	case abi.Bool:
		return raw != 0
	default:
		return raw
	}
}

// bits64 extracts the full 64-bit pattern of a wide integer so it can
// be split into two halves.
func bits64(v any) (uint64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanUint():
		return rv.Uint(), nil
	case rv.CanInt():
		return uint64(rv.Int()), nil
	default:
		return 0, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
			"cannot split value of type %T", v)
	}
}

// writeElem encodes one in-memory element at buf[off:] using the
// element's natural size.
func writeElem(kind abi.PrimType, size uint32, buf []byte, off uint32, v any) error {
	raw, err := encodeNum(kind, v)
	if err != nil {
		return err
	}
	switch size {
	case 1:
		buf[off] = byte(raw)
	case 2:
		binary.LittleEndian.PutUint16(buf[off:], uint16(raw))
	case 4:
		binary.LittleEndian.PutUint32(buf[off:], uint32(raw))
	case 8:
		binary.LittleEndian.PutUint64(buf[off:], raw)
	}
	return nil
}

// readElem decodes one in-memory element from buf[off:].
func readElem(kind abi.PrimType, size uint32, buf []byte, off uint32) any {
	var raw uint64
	switch size {
	case 1:
		raw = uint64(buf[off])
	case 2:
		raw = uint64(binary.LittleEndian.Uint16(buf[off:]))
	case 4:
		raw = uint64(binary.LittleEndian.Uint32(buf[off:]))
	case 8:
		raw = binary.LittleEndian.Uint64(buf[off:])
	}
	// 1, 2 and 4 byte loads must sign-extend before decode.
	switch kind {
	case abi.I8:
		raw = uint64(uint32(int32(int8(raw))))
	case abi.I16:
		raw = uint64(uint32(int32(int16(raw))))
	}
	return decodeNum(kind, raw)
}

// makeSlice builds the typed host slice a lifted vector decodes into.
func makeSlice(kind abi.PrimType, n int) reflect.Value {
	var elem any
	switch kind {
	case abi.U8:
		elem = uint8(0)
	case abi.U16:
		elem = uint16(0)
	case abi.U32:
		elem = uint32(0)
	case abi.U64:
		elem = uint64(0)
	case abi.Usize:
		elem = uint(0)
	case abi.I8:
		elem = int8(0)
	case abi.I16:
		elem = int16(0)
	case abi.I32:
		elem = int32(0)
	case abi.I64:
		elem = int64(0)
	case abi.Isize:
		elem = int(0)
	case abi.F32:
		elem = float32(0)
	case abi.F64:
		elem = float64(0)
	case abi.Bool:
		elem = false
	default:
		elem = uint64(0)
	}
	return reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(elem)), n, n)
}

func badValue(kind abi.PrimType, v any) error {
	return errors.New(errors.PhaseRuntime, errors.KindUnsupported,
		"cannot encode %T as %s", v, kind)
}
