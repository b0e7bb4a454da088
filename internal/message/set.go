package message

import "github.com/kvsd/kvsd/internal/frame"

// Set requests a key be written to value, returning the prior value (if
// any) on success.
type Set struct {
	Key   string
	Value []byte
}

func (s *Set) Type() byte { return TypeSet }

func (s *Set) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypeSet, 2)
	b.PushString(s.Key)
	b.PushBytes(s.Value)
	return b.Build()
}

func setFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 2); err != nil {
		return nil, err
	}
	key, err := expectString(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	value, err := expectBytes(mf.Payload()[1])
	if err != nil {
		return nil, err
	}
	return &Set{Key: key, Value: value}, nil
}
