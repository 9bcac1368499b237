package core

import (
	"encoding/json"
	"fmt"

	"github.com/jabolina/go-xfer/pkg/xfer/types"
)

// Codec turns a Packet into wire bytes and back. Serializing the on-wire
// representation is not this core's job, but a default JSON implementation
// is provided so the module is runnable and testable standalone; an
// embedder wiring a real overlay is free to supply a different Codec that
// speaks whatever bit layout that overlay uses.
type Codec interface {
	Encode(p Packet) ([]byte, error)
	Decode(data []byte) (Packet, error)
}

// wireEnvelope tags the payload type for JSONCodec, since Packet is an
// interface and encoding/json cannot recover the concrete type on its own.
type wireEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

const (
	kindWriteRequest    = "write_request"
	kindAcknowledgement = "acknowledgement"
	kindData            = "data"
	kindError           = "error"
)

// JSONCodec is the default Codec, backed by encoding/json.
type JSONCodec struct{}

func (JSONCodec) Encode(p Packet) ([]byte, error) {
	var kind string
	switch p.(type) {
	case WriteRequest:
		kind = kindWriteRequest
	case Acknowledgement:
		kind = kindAcknowledgement
	case Data:
		kind = kindData
	case Error:
		kind = kindError
	default:
		return nil, fmt.Errorf("xfer: codec cannot encode packet of type %T", p)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("xfer: marshal payload: %w", err)
	}

	return json.Marshal(wireEnvelope{Kind: kind, Payload: payload})
}

func (JSONCodec) Decode(data []byte) (Packet, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("xfer: unmarshal envelope: %w", err)
	}

	switch env.Kind {
	case kindWriteRequest:
		var p WriteRequest
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindAcknowledgement:
		var p Acknowledgement
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindData:
		var p Data
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	case kindError:
		var p Error
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("xfer: unknown packet kind %q: %w", env.Kind, types.ErrUnsupportedProtocol)
	}
}
