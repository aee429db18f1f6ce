package dht

import "fmt"

// MessageKind discriminates the three wire message bodies this package
// encodes, framed ahead of the body the same way other_examples' gnunet-go
// frames MsgHeader{MsgSize, MsgType} before a type-specific body: spec.md
// §6 pins the three body layouts but leaves the outer multiplexing tag
// implicit, so EncodeEnvelope/DecodeEnvelope add the minimal u16 needed to
// tell them apart on the wire.
type MessageKind uint16

const (
	MessageKindPut MessageKind = iota + 1
	MessageKindGet
	MessageKindResult
)

// EncodeEnvelope prefixes an already-encoded message body with its kind tag.
func EncodeEnvelope(kind MessageKind, body []byte) []byte {
	return append(appendU16(nil, uint16(kind)), body...)
}

// DecodeEnvelope strips the kind tag, returning it alongside the remaining
// body bytes for kind-specific decoding.
func DecodeEnvelope(buf []byte) (MessageKind, []byte, error) {
	r := &reader{buf: buf}
	k, err := r.u16()
	if err != nil {
		return 0, nil, fmt.Errorf("dht: %w", err)
	}
	return MessageKind(k), r.rest(), nil
}

// Dispatch decodes envelope and routes it to the matching Handle* method.
// This is what an underlay's OnMessage callback calls for every inbound
// envelope from a connected peer.
func (r *Router) Dispatch(envelope []byte) error {
	kind, body, err := DecodeEnvelope(envelope)
	if err != nil {
		return err
	}
	switch kind {
	case MessageKindPut:
		msg, err := DecodePutMessage(body)
		if err != nil {
			return fmt.Errorf("dht: decode PUT: %w", err)
		}
		return r.HandlePut(msg)
	case MessageKindGet:
		msg, err := DecodeGetMessage(body)
		if err != nil {
			return fmt.Errorf("dht: decode GET: %w", err)
		}
		return r.HandleGet(msg)
	case MessageKindResult:
		msg, err := DecodeResultMessage(body)
		if err != nil {
			return fmt.Errorf("dht: decode RESULT: %w", err)
		}
		return r.HandleResult(msg)
	default:
		return fmt.Errorf("dht: unknown message kind %d", kind)
	}
}
