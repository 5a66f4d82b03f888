package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// Base64JSONName is the name of the Base64JSON codec.
const Base64JSONName = "base64JSON"

// Base64JSON encodes a tuple as standard base64 over its JSON array form.
//
// Decoding accepts padded and unpadded input. Numbers are decoded as
// json.Number so 64-bit keys survive the round trip without float rounding.
type Base64JSON struct{}

// Name implements Codec.
func (Base64JSON) Name() string { return Base64JSONName }

// Encode implements Codec.
func (Base64JSON) Encode(t Tuple) (string, error) {
	if len(t) == 0 {
		return "", fmt.Errorf("%w: empty tuple", ErrMalformed)
	}
	raw, err := json.Marshal([]any(t))
	if err != nil {
		return "", fmt.Errorf("failed to marshal identifier tuple: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode implements Codec.
func (Base64JSON) Decode(s string) (Tuple, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformed)
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var t []any
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("%w: not a non-empty array", ErrMalformed)
	}
	return Tuple(t), nil
}
