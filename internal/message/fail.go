package message

import "github.com/kvsd/kvsd/internal/frame"

// Fail carries a taxonomy code (one of the FailCode* constants) and a
// free-text message.
type Fail struct {
	Code    string
	Message string
}

func (f *Fail) Type() byte { return TypeFail }

func (f *Fail) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypeFail, 2)
	b.PushString(f.Code)
	b.PushString(f.Message)
	return b.Build()
}

func failFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 2); err != nil {
		return nil, err
	}
	code, err := expectString(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	msg, err := expectString(mf.Payload()[1])
	if err != nil {
		return nil, err
	}
	return &Fail{Code: code, Message: msg}, nil
}
