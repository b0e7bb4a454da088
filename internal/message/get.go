package message

import "github.com/kvsd/kvsd/internal/frame"

// Get requests the current value for a key.
type Get struct {
	Key string
}

func (g *Get) Type() byte { return TypeGet }

func (g *Get) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypeGet, 1)
	b.PushString(g.Key)
	return b.Build()
}

func getFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 1); err != nil {
		return nil, err
	}
	key, err := expectString(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	return &Get{Key: key}, nil
}
