package codec

import (
	"fmt"
	"strings"
)

// PipeStringName is the name of the PipeString codec.
const PipeStringName = "pipeString"

// PipeString joins tuple elements with "|". It is human readable but only
// round-trips string values; decoded elements are always strings.
type PipeString struct{}

// Name implements Codec.
func (PipeString) Name() string { return PipeStringName }

// Encode implements Codec.
func (PipeString) Encode(t Tuple) (string, error) {
	if len(t) == 0 {
		return "", fmt.Errorf("%w: empty tuple", ErrMalformed)
	}
	parts := make([]string, len(t))
	for i, v := range t {
		if v == nil {
			return "", fmt.Errorf("%w: nil element at position %d", ErrMalformed, i)
		}
		s := fmt.Sprint(v)
		if strings.Contains(s, "|") {
			return "", fmt.Errorf("%w: element %q contains the separator", ErrMalformed, s)
		}
		parts[i] = s
	}
	return strings.Join(parts, "|"), nil
}

// Decode implements Codec.
func (PipeString) Decode(s string) (Tuple, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformed)
	}
	parts := strings.Split(s, "|")
	t := make(Tuple, len(parts))
	for i, p := range parts {
		t[i] = p
	}
	return t, nil
}
