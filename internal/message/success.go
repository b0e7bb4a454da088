package message

import "github.com/kvsd/kvsd/internal/frame"

// Success carries an optional reply value; Null means "no value" (e.g. an
// Authenticate handshake confirmation, a Set with no prior value, or a
// Get/Delete miss).
type Success struct {
	Value    []byte
	HasValue bool
}

func (s *Success) Type() byte { return TypeSuccess }

func (s *Success) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypeSuccess, 1)
	bytesOrNullFrame(b, s.Value, s.HasValue)
	return b.Build()
}

func successFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 1); err != nil {
		return nil, err
	}
	value, ok, err := parseBytesOrNull(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	return &Success{Value: value, HasValue: ok}, nil
}
