package message

import "github.com/kvsd/kvsd/internal/frame"

// Authenticate carries a username/password credential.
type Authenticate struct {
	Username string
	Password string
}

func (a *Authenticate) Type() byte { return TypeAuthenticate }

func (a *Authenticate) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypeAuthenticate, 2)
	b.PushString(a.Username)
	b.PushString(a.Password)
	return b.Build()
}

func authenticateFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 2); err != nil {
		return nil, err
	}
	username, err := expectString(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	password, err := expectString(mf.Payload()[1])
	if err != nil {
		return nil, err
	}
	return &Authenticate{Username: username, Password: password}, nil
}
