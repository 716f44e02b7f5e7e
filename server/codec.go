package server

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// The runner messages are plain structs, so the service registers its
// own codecs: encoding/json for application/json clients and canonical
// CBOR for application/cbor clients.

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

type cborCodec struct {
	enc cbor.EncMode
}

func newCBORCodec() (cborCodec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return cborCodec{}, fmt.Errorf("server: failed to create CBOR enc mode: %w", err)
	}
	return cborCodec{enc: em}, nil
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Marshal(msg any) ([]byte, error) {
	return c.enc.Marshal(msg)
}

func (cborCodec) Unmarshal(data []byte, msg any) error {
	return cbor.Unmarshal(data, msg)
}
