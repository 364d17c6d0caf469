package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"
	"time"
)

const maxKeyDepth = 32

var timeType = reflect.TypeFor[time.Time]()

// keyEncoder writes a canonical byte form of arbitrary values.
// Map entries are sorted by their encoded form, so equal maps hash equally.
type keyEncoder struct {
	w   io.Writer
	buf [8]byte
}

func newKeyEncoder(w io.Writer) *keyEncoder {
	return &keyEncoder{w: w}
}

func (e *keyEncoder) encode(part any) error {
	return e.value(reflect.ValueOf(part), 0)
}

func (e *keyEncoder) value(v reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrUnhashableKey, maxKeyDepth)
	}
	if !v.IsValid() {
		e.str("<nil>")
		return nil
	}

	typ := v.Type()
	e.str(typ.String())

	if typ == timeType && v.CanInterface() {
		e.u64(uint64(v.Interface().(time.Time).UnixNano()))
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			e.u64(1)
		} else {
			e.u64(0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.u64(uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.u64(v.Uint())
	case reflect.Float32, reflect.Float64:
		e.u64(math.Float64bits(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		e.u64(math.Float64bits(real(c)))
		e.u64(math.Float64bits(imag(c)))
	case reflect.String:
		e.str(v.String())
	case reflect.Slice:
		if v.IsNil() {
			e.str("<nil>")
			return nil
		}
		return e.sequence(v, depth)
	case reflect.Array:
		return e.sequence(v, depth)
	case reflect.Map:
		return e.mapping(v, depth)
	case reflect.Struct:
		e.u64(uint64(v.NumField()))
		for i := 0; i < v.NumField(); i++ {
			e.str(typ.Field(i).Name)
			if err := e.value(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			e.str("<nil>")
			return nil
		}
		return e.value(v.Elem(), depth+1)
	default:
		// func, chan, unsafe.Pointer
		return fmt.Errorf("%w: %s", ErrUnhashableKey, typ)
	}
	return nil
}

func (e *keyEncoder) sequence(v reflect.Value, depth int) error {
	e.u64(uint64(v.Len()))
	for i := 0; i < v.Len(); i++ {
		if err := e.value(v.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *keyEncoder) mapping(v reflect.Value, depth int) error {
	if v.IsNil() {
		e.str("<nil>")
		return nil
	}

	entries := make([][]byte, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var b bytes.Buffer
		sub := newKeyEncoder(&b)
		if err := sub.value(iter.Key(), depth+1); err != nil {
			return err
		}
		if err := sub.value(iter.Value(), depth+1); err != nil {
			return err
		}
		entries = append(entries, b.Bytes())
	}
	slices.SortFunc(entries, bytes.Compare)

	e.u64(uint64(len(entries)))
	for _, entry := range entries {
		_, _ = e.w.Write(entry)
	}
	return nil
}

func (e *keyEncoder) u64(n uint64) {
	binary.LittleEndian.PutUint64(e.buf[:], n)
	_, _ = e.w.Write(e.buf[:])
}

func (e *keyEncoder) str(s string) {
	e.u64(uint64(len(s)))
	_, _ = io.WriteString(e.w, s)
}
