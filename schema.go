package jxln

import (
	"errors"
	"fmt"
)

// Fields holds the values bound so far while a record is decoded or encoded, keyed by field name.
// Fields of a nested record are bound as "<field>.<sub>".
type Fields map[string]uint32

// Get returns the value bound to name, or zero if it is not bound.
func (f Fields) Get(name string) uint32 {
	return f[name]
}

// Bool reports whether the value bound to name is non-zero.
func (f Fields) Bool(name string) bool {
	return f[name] != 0
}

// Cond decides whether a field is present in the stream. It only sees fields declared before it.
type Cond func(f Fields) bool

// Field describes one entry of a Schema.
type Field struct {
	Name    string
	Codec   Codec  // Value type of a primitive field.
	Record  Schema // Value type of a nested record; exclusive with Codec.
	Default uint32 // Bound when If reports false. Ignored for nested records.
	If      Cond   // Presence condition; nil means always present.
}

// present evaluates the field condition against the fields bound so far.
func (fd *Field) present(bound Fields) bool {
	return fd.If == nil || fd.If(bound)
}

// Schema is an ordered list of fields. Declaration order is both the bitstream order and the
// dependency order.
type Schema []Field

// Validate checks that field names are non-empty and unique and that every field has exactly
// one value type.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s))

	return s.validate("", seen)
}

func (s Schema) validate(prefix string, seen map[string]bool) error {
	for i := range s {
		fd := &s[i]
		if fd.Name == "" {
			return fmt.Errorf("schema field %d has no name", i)
		}

		name := prefix + fd.Name
		if seen[name] {
			return fmt.Errorf("schema field %q declared twice", name)
		}
		seen[name] = true

		switch {
		case fd.Codec != nil && fd.Record != nil:
			return fmt.Errorf("schema field %q has both a codec and a record", name)
		case fd.Codec == nil && fd.Record == nil:
			return fmt.Errorf("schema field %q has no value type", name)
		case fd.Record != nil:
			if err := fd.Record.validate(name+".", seen); err != nil {
				return err
			}
		}
	}

	return nil
}

// Decode reads every present field in declaration order and returns the bound values.
// Absent fields are bound to their defaults without touching the reader.
func (s Schema) Decode(br *BitReader) (Fields, error) {
	bound := make(Fields, len(s))
	if err := s.decode(br, "", bound); err != nil {
		return nil, err
	}

	return bound, nil
}

func (s Schema) decode(br *BitReader, prefix string, bound Fields) error {
	for i := range s {
		fd := &s[i]
		name := prefix + fd.Name

		if fd.Record != nil {
			if fd.present(bound) {
				if err := fd.Record.decode(br, name+".", bound); err != nil {
					return err
				}
			} else {
				fd.Record.bindDefaults(name+".", bound)
			}

			continue
		}

		if !fd.present(bound) {
			bound[name] = fd.Default

			continue
		}

		v, err := fd.Codec.Decode(br)
		if err != nil {
			return err
		}
		bound[name] = v
	}

	return nil
}

// bindDefaults binds the default of every field, recursively.
func (s Schema) bindDefaults(prefix string, bound Fields) {
	for i := range s {
		fd := &s[i]
		if fd.Record != nil {
			fd.Record.bindDefaults(prefix+fd.Name+".", bound)
		} else {
			bound[prefix+fd.Name] = fd.Default
		}
	}
}

// Encode writes the present fields of values in declaration order.
//
// Conditions are evaluated the same way Decode evaluates them: each one sees only the fields
// declared before it, with absent fields bound to their defaults. Missing entries in values
// encode as zero.
func (s Schema) Encode(bw *BitWriter, values Fields) error {
	bound := make(Fields, len(s))

	return s.encode(bw, "", values, bound)
}

func (s Schema) encode(bw *BitWriter, prefix string, values, bound Fields) error {
	for i := range s {
		fd := &s[i]
		name := prefix + fd.Name

		if fd.Record != nil {
			if fd.present(bound) {
				if err := fd.Record.encode(bw, name+".", values, bound); err != nil {
					return err
				}
			} else {
				fd.Record.bindDefaults(name+".", bound)
			}

			continue
		}

		if !fd.present(bound) {
			bound[name] = fd.Default

			continue
		}

		v := values[name]
		if err := fd.Codec.Encode(bw, v); err != nil {
			if errors.Is(err, ErrRange) {
				return fmt.Errorf("field %q: %w", name, err)
			}

			return err
		}
		bound[name] = v
	}

	return nil
}

// Record binds a Schema to the Go value it describes.
//
// Assemble builds the public value from the decoded fields. Disassemble derives the field
// values back from a public value; it is only needed for encoding.
type Record[T any] struct {
	Schema      Schema
	Assemble    func(f Fields) T
	Disassemble func(v T) (Fields, error)
}

// Decode reads the record. The result is only produced after every field decoded successfully.
func (r *Record[T]) Decode(br *BitReader) (T, error) {
	var zero T

	f, err := r.Schema.Decode(br)
	if err != nil {
		return zero, err
	}

	return r.Assemble(f), nil
}

// Encode writes v.
func (r *Record[T]) Encode(bw *BitWriter, v T) error {
	if r.Disassemble == nil {
		return fmt.Errorf("%w: record has no encoder", ErrUnsupported)
	}

	f, err := r.Disassemble(v)
	if err != nil {
		return err
	}

	return r.Schema.Encode(bw, f)
}
