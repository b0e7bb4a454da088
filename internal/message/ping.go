package message

import (
	"time"

	"github.com/kvsd/kvsd/internal/frame"
)

// Ping carries an optional client-stamped time and an optional
// server-stamped time, both Null until set.
type Ping struct {
	ClientTime   time.Time
	HasClientTime bool
	ServerTime   time.Time
	HasServerTime bool
}

func (p *Ping) Type() byte { return TypePing }

func (p *Ping) toFrames() *frame.MessageFrames {
	b := frame.NewBuilder(TypePing, 2)
	timeOrNullFrame(b, p.ClientTime, p.HasClientTime)
	timeOrNullFrame(b, p.ServerTime, p.HasServerTime)
	return b.Build()
}

func pingFromFrames(mf *frame.MessageFrames) (Message, error) {
	if err := expectPayloadLen(mf, 2); err != nil {
		return nil, err
	}
	clientTime, hasClient, err := parseTimeOrNull(mf.Payload()[0])
	if err != nil {
		return nil, err
	}
	serverTime, hasServer, err := parseTimeOrNull(mf.Payload()[1])
	if err != nil {
		return nil, err
	}
	return &Ping{
		ClientTime: clientTime, HasClientTime: hasClient,
		ServerTime: serverTime, HasServerTime: hasServer,
	}, nil
}
