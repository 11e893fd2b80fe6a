package codec

import (
	"encoding/json"
	"errors"
	"nav-command/message"
)

// JSONCodec is the textual form of a record, e.g. {"mode":1,"a":100,"b":101,"c":102}.
// It is never put on the wire; the CLI accepts records in this form.
type JSONCodec struct{}

func (c *JSONCodec) Encode(rec *message.CommandRecord) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("JSONCodec: record must not be nil")
	}
	return json.Marshal(rec)
}

func (c *JSONCodec) Decode(data []byte, rec *message.CommandRecord) error {
	if rec == nil {
		return errors.New("JSONCodec: record must not be nil")
	}
	return json.Unmarshal(data, rec)
}
