package metatrader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

type ProtocolTestSuite struct {
	suite.Suite
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolTestSuite))
}

func (suite *ProtocolTestSuite) TestFrameRoundTrip() {
	msg, err := NewMessage(MsgSubscribe, SubscribePayload{
		Instrument: "ES",
		Timeframe:  types.Timeframe5Minute,
	})
	suite.Require().NoError(err)

	var buf bytes.Buffer
	suite.Require().NoError(FrameMessage(&buf, msg))

	decoded, err := ReadFrame(&buf)
	suite.Require().NoError(err)
	suite.Equal(MsgSubscribe, decoded.Type)

	var payload SubscribePayload
	suite.Require().NoError(decoded.DecodePayload(&payload))
	suite.Equal("ES", payload.Instrument)
	suite.Equal(types.Timeframe5Minute, payload.Timeframe)
}

func (suite *ProtocolTestSuite) TestFrameWithoutPayload() {
	msg, err := NewMessage(MsgHeartbeat, nil)
	suite.Require().NoError(err)

	var buf bytes.Buffer
	suite.Require().NoError(FrameMessage(&buf, msg))

	decoded, err := ReadFrame(&buf)
	suite.Require().NoError(err)
	suite.Equal(MsgHeartbeat, decoded.Type)
	suite.Empty(decoded.Payload)
}

func (suite *ProtocolTestSuite) TestMultipleFramesSequential() {
	var buf bytes.Buffer
	for _, msgType := range []MessageType{MsgHeartbeat, MsgAccountRequest, MsgFlattenAll} {
		msg, err := NewMessage(msgType, nil)
		suite.Require().NoError(err)
		suite.Require().NoError(FrameMessage(&buf, msg))
	}

	for _, want := range []MessageType{MsgHeartbeat, MsgAccountRequest, MsgFlattenAll} {
		decoded, err := ReadFrame(&buf)
		suite.Require().NoError(err)
		suite.Equal(want, decoded.Type)
	}
}

func (suite *ProtocolTestSuite) TestOversizedFrameRejected() {
	var buf bytes.Buffer
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, maxFrameSize+1)
	buf.Write(header)

	_, err := ReadFrame(&buf)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerOther))
}

func (suite *ProtocolTestSuite) TestTruncatedFrame() {
	msg, err := NewMessage(MsgHeartbeat, nil)
	suite.Require().NoError(err)

	var buf bytes.Buffer
	suite.Require().NoError(FrameMessage(&buf, msg))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])

	_, err = ReadFrame(truncated)
	suite.Require().Error(err)
}

func (suite *ProtocolTestSuite) TestErrorPayload() {
	msg, err := NewMessage(MsgError, ErrorPayload{Code: 10013, Message: "invalid request"})
	suite.Require().NoError(err)

	var payload ErrorPayload
	suite.Require().NoError(msg.DecodePayload(&payload))
	suite.Equal(10013, payload.Code)
	suite.Equal("invalid request", payload.Message)
}
