package repositories

import (
	"fmt"
	"time"

	"skillxchange/domain"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the stored message record. Never reuse a number.
const (
	fieldID        protowire.Number = 1
	fieldSeq       protowire.Number = 2
	fieldSender    protowire.Number = 3
	fieldReceiver  protowire.Number = 4
	fieldText      protowire.Number = 5
	fieldCreatedAt protowire.Number = 6
	fieldStatus    protowire.Number = 7
)

// encodeMessage writes the record in protobuf wire format so old records stay
// readable when fields are added.
func encodeMessage(m domain.Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, m.ID[:])
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Seq)
	b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
	b = protowire.AppendString(b, m.SenderID)
	b = protowire.AppendTag(b, fieldReceiver, protowire.BytesType)
	b = protowire.AppendString(b, m.ReceiverID)
	b = protowire.AppendTag(b, fieldText, protowire.BytesType)
	b = protowire.AppendString(b, m.Text)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(m.CreatedAt.UnixNano()))
	b = protowire.AppendTag(b, fieldStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Status))
	return b
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				id, err := uuid.FromBytes(v)
				if err != nil {
					return domain.Message{}, fmt.Errorf("message id: %w", err)
				}
				m.ID = id
			}
		case num == fieldSeq && typ == protowire.VarintType:
			m.Seq, n = protowire.ConsumeVarint(b)
		case num == fieldSender && typ == protowire.BytesType:
			m.SenderID, n = protowire.ConsumeString(b)
		case num == fieldReceiver && typ == protowire.BytesType:
			m.ReceiverID, n = protowire.ConsumeString(b)
		case num == fieldText && typ == protowire.BytesType:
			m.Text, n = protowire.ConsumeString(b)
		case num == fieldCreatedAt && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			m.CreatedAt = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
		case num == fieldStatus && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			m.Status = domain.Status(v)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return domain.Message{}, protowire.ParseError(n)
		}
		b = b[n:]
	}
	if m.ID == uuid.Nil {
		return domain.Message{}, fmt.Errorf("message record without id")
	}
	return m, nil
}
