package table

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/pkg/errors"
)

type columnKind int

const (
	kindUnknown columnKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindBinary
	kindTimestamp
)

// Schema returns the arrow schema t converts to. Column types are inferred from
// the values: bool, int64, float64, string, binary and timestamp[us, UTC].
// Columns with no values or mixed values become strings.
func (t *Table) Schema() *arrow.Schema {
	kinds := t.columnKinds()
	fields := make([]arrow.Field, len(t.columns))
	for i, name := range t.columns {
		fields[i] = arrow.Field{Name: name, Type: kinds[i].arrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Record converts t to an arrow record. The caller must release it.
func (t *Table) Record(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	kinds := t.columnKinds()
	schema := t.Schema()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for c := range t.columns {
		fb := b.Field(c)
		for _, row := range t.rows {
			if err := appendValue(fb, kinds[c], row[c]); err != nil {
				return nil, errors.WithMessagef(err, "column %s", t.columns[c])
			}
		}
	}

	return b.NewRecord(), nil
}

// WriteIPC writes t to w as an arrow IPC stream holding one record batch.
func (t *Table) WriteIPC(w io.Writer) error {
	mem := memory.NewGoAllocator()
	rec, err := t.Record(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(writer.Close())
}

func (t *Table) columnKinds() []columnKind {
	kinds := make([]columnKind, len(t.columns))
	for c := range t.columns {
		kind := kindUnknown
		for _, row := range t.rows {
			k := kindOf(row[c])
			if k == kindUnknown {
				continue
			}
			if kind == kindUnknown {
				kind = k
			} else if kind != k {
				kind = kindString
				break
			}
		}
		if kind == kindUnknown {
			kind = kindString
		}
		kinds[c] = kind
	}
	return kinds
}

func kindOf(v any) columnKind {
	switch v.(type) {
	case nil:
		return kindUnknown
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case float32, float64:
		return kindFloat
	case string:
		return kindString
	case []byte:
		return kindBinary
	case time.Time:
		return kindTimestamp
	default:
		return kindString
	}
}

func (k columnKind) arrowType() arrow.DataType {
	switch k {
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBinary:
		return arrow.BinaryTypes.Binary
	case kindTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, kind columnKind, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch kind {
	case kindBool:
		b.(*array.BooleanBuilder).Append(v.(bool))
	case kindInt:
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		b.(*array.Int64Builder).Append(n)
	case kindFloat:
		switch f := v.(type) {
		case float32:
			b.(*array.Float64Builder).Append(float64(f))
		case float64:
			b.(*array.Float64Builder).Append(f)
		}
	case kindBinary:
		b.(*array.BinaryBuilder).Append(v.([]byte))
	case kindTimestamp:
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(v.(time.Time).UTC().UnixMicro()))
	default:
		switch s := v.(type) {
		case string:
			b.(*array.StringBuilder).Append(s)
		case []byte:
			b.(*array.StringBuilder).Append(string(s))
		default:
			b.(*array.StringBuilder).Append(fmt.Sprint(s))
		}
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	}
	return 0, errors.Errorf("%T is not an integer", v)
}
