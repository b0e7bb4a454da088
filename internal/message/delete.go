package message

import "github.com/kvsd/kvsd/internal/frame"

// Delete requests a key be removed, returning its previous value (if any)
// on success.
type Delete struct {
	Key string
}

func (d *Delete) Type() byte { return TypeDelete }

func (d *Delete) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypeDelete, 1)
	b.PushString(d.Key)
	return b.Build()
}

func deleteFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 1); err != nil {
		return nil, err
	}
	key, err := expectString(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	return &Delete{Key: key}, nil
}
