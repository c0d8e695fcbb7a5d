package partition

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/troon-simulator/model"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrCorruptBatch reports an exchange payload that cannot be decoded.
var ErrCorruptBatch = errors.New("corrupt exchange batch")

// Transfer is a troon handed to the worker owning its next link. Position
// fields are rebuilt by the receiving waiting area, so only identity and
// target travel.
type Transfer struct {
	ID   int
	Line model.Line
	Link int
}

// Batch wire layout (protobuf wire format):
//
//	1: varint  number of transfers that follow
//	2: bytes   one Transfer record, repeated
//
// Transfer record:
//
//	1: varint  troon id
//	2: varint  line
//	3: varint  target link
const (
	batchCountField    protowire.Number = 1
	batchTransferField protowire.Number = 2

	transferIDField   protowire.Number = 1
	transferLineField protowire.Number = 2
	transferLinkField protowire.Number = 3
)

// AppendBatch encodes transfers onto b. The count header lets the receiver
// size its buffer before reading the records.
func AppendBatch(b []byte, transfers []Transfer) []byte {
	b = protowire.AppendTag(b, batchCountField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(len(transfers)))

	var rec []byte
	for _, tr := range transfers {
		rec = rec[:0]
		rec = protowire.AppendTag(rec, transferIDField, protowire.VarintType)
		rec = protowire.AppendVarint(rec, uint64(tr.ID))
		rec = protowire.AppendTag(rec, transferLineField, protowire.VarintType)
		rec = protowire.AppendVarint(rec, uint64(tr.Line))
		rec = protowire.AppendTag(rec, transferLinkField, protowire.VarintType)
		rec = protowire.AppendVarint(rec, uint64(tr.Link))

		b = protowire.AppendTag(b, batchTransferField, protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}
	return b
}

// DecodeBatch parses a payload produced by AppendBatch and appends the
// transfers to dst.
func DecodeBatch(dst []Transfer, b []byte) ([]Transfer, error) {
	want := -1
	got := 0
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return dst, fmt.Errorf("%w: %v", ErrCorruptBatch, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == batchCountField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return dst, fmt.Errorf("%w: count: %v", ErrCorruptBatch, protowire.ParseError(n))
			}
			b = b[n:]
			if v > uint64(len(b)) {
				return dst, fmt.Errorf("%w: count %d exceeds payload", ErrCorruptBatch, v)
			}
			want = int(v)
			if cap(dst)-len(dst) < want {
				grown := make([]Transfer, len(dst), len(dst)+want)
				copy(grown, dst)
				dst = grown
			}
		case num == batchTransferField && typ == protowire.BytesType:
			rec, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return dst, fmt.Errorf("%w: record: %v", ErrCorruptBatch, protowire.ParseError(n))
			}
			b = b[n:]
			tr, err := decodeTransfer(rec)
			if err != nil {
				return dst, err
			}
			dst = append(dst, tr)
			got++
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return dst, fmt.Errorf("%w: field %d: %v", ErrCorruptBatch, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if want != got {
		return dst, fmt.Errorf("%w: header announced %d transfers, found %d", ErrCorruptBatch, want, got)
	}
	return dst, nil
}

func decodeTransfer(b []byte) (Transfer, error) {
	var tr Transfer
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return tr, fmt.Errorf("%w: transfer: %v", ErrCorruptBatch, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return tr, fmt.Errorf("%w: transfer field %d: %v", ErrCorruptBatch, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return tr, fmt.Errorf("%w: transfer field %d: %v", ErrCorruptBatch, num, protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case transferIDField:
			tr.ID = int(v)
		case transferLineField:
			tr.Line = model.Line(v)
		case transferLinkField:
			tr.Link = int(v)
		}
	}
	if !tr.Line.Valid() {
		return tr, fmt.Errorf("%w: troon %d has unknown line %d", ErrCorruptBatch, tr.ID, int(tr.Line))
	}
	return tr, nil
}
