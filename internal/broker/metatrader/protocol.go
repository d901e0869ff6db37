// Package metatrader implements the Broker interface over the TCP
// bridge protocol spoken by the MetaTrader expert advisor. Messages
// are framed as a 4-byte big-endian length prefix followed by a JSON
// body carrying a type tag and a payload.
package metatrader

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// MessageType tags a protocol message.
type MessageType string

// Outbound message types.
const (
	MsgSubmitOrder      MessageType = "submit_order"
	MsgCancelOrder      MessageType = "cancel_order"
	MsgModifyOrder      MessageType = "modify_order"
	MsgAccountRequest   MessageType = "account_request"
	MsgPositionsRequest MessageType = "positions_request"
	MsgSubscribe        MessageType = "subscribe"
	MsgUnsubscribe      MessageType = "unsubscribe"
	MsgFlattenAll       MessageType = "flatten_all"
	MsgHeartbeat        MessageType = "heartbeat"
)

// Inbound message types.
const (
	MsgBar            MessageType = "bar"
	MsgTick           MessageType = "tick"
	MsgOrderUpdate    MessageType = "order_update"
	MsgAccountUpdate  MessageType = "account_update"
	MsgPositionUpdate MessageType = "position_update"
	MsgHeartbeatAck   MessageType = "heartbeat_ack"
	MsgError          MessageType = "error"
	MsgConnected      MessageType = "connected"
)

// maxFrameSize bounds a single frame to keep a corrupt length prefix
// from allocating unbounded memory.
const maxFrameSize = 4 << 20

// Message is the wire envelope.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload requests a market data stream.
type SubscribePayload struct {
	Instrument string          `json:"instrument"`
	Timeframe  types.Timeframe `json:"timeframe"`
}

// CancelPayload cancels an order by id.
type CancelPayload struct {
	OrderID string `json:"order_id"`
}

// ErrorPayload reports a bridge-side failure.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConnectedPayload announces the bridge version after a connect.
type ConnectedPayload struct {
	Version string `json:"version"`
}

// NewMessage builds a message with a JSON-encoded payload.
func NewMessage(msgType MessageType, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, errors.Wrap(errors.ErrCodeBrokerOther, "failed to encode payload", err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// DecodePayload unmarshals the message payload into out.
func (m Message) DecodePayload(out any) error {
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return errors.Wrapf(errors.ErrCodeBrokerOther, err, "failed to decode %s payload", m.Type)
	}
	return nil
}

// FrameMessage writes one length-prefixed frame. The caller is
// responsible for serializing concurrent writes.
func FrameMessage(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerOther, "failed to encode message", err)
	}

	if len(body) > maxFrameSize {
		return errors.Newf(errors.ErrCodeBrokerOther, "frame size %d exceeds maximum", len(body))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, "failed to write frame header", err)
	}
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(errors.ErrCodeConnectionFailed, "failed to write frame body", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. Reads must not be
// interleaved across goroutines.
func ReadFrame(r io.Reader) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, errors.Wrap(errors.ErrCodeConnectionFailed, "failed to read frame header", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return Message{}, errors.Newf(errors.ErrCodeBrokerOther, "frame size %d exceeds maximum", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, errors.Wrap(errors.ErrCodeConnectionFailed, "failed to read frame body", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, errors.Wrap(errors.ErrCodeBrokerOther, "failed to decode frame", err)
	}
	return msg, nil
}
