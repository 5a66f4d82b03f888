package codec

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64JSONEncode(t *testing.T) {
	c := Base64JSON{}

	got, err := c.Encode(Tuple{"User", 42})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(`["User",42]`)), got)
	assert.Equal(t, "WyJVc2VyIiw0Ml0=", got)

	_, err = c.Encode(nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestBase64JSONRoundTrip(t *testing.T) {
	c := Base64JSON{}

	tests := []struct {
		name  string
		tuple Tuple
		want  Tuple
	}{
		{
			name:  "single string key",
			tuple: Tuple{"User", "a1b2"},
			want:  Tuple{"User", "a1b2"},
		},
		{
			name:  "composite numeric key",
			tuple: Tuple{"Membership", 7, 9},
			want:  Tuple{"Membership", json.Number("7"), json.Number("9")},
		},
		{
			name:  "int64 beyond float precision",
			tuple: Tuple{"Event", int64(9007199254740993)},
			want:  Tuple{"Event", json.Number("9007199254740993")},
		},
		{
			name:  "identifier only",
			tuple: Tuple{"Query"},
			want:  Tuple{"Query"},
		},
		{
			name:  "unicode and quotes",
			tuple: Tuple{`Wéird "type"`, "ключ"},
			want:  Tuple{`Wéird "type"`, "ключ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := c.Encode(tt.tuple)
			require.NoError(t, err)

			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded)
		})
	}
}

func TestBase64JSONDecodeAcceptsUnpadded(t *testing.T) {
	raw := base64.RawStdEncoding.EncodeToString([]byte(`["User",1]`))
	got, err := Base64JSON{}.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Tuple{"User", json.Number("1")}, got)
}

func TestBase64JSONDecodeMalformed(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "not base64", input: "!!!not-base64!!!"},
		{name: "not json", input: enc("User:1")},
		{name: "json object", input: enc(`{"type":"User"}`)},
		{name: "json string", input: enc(`"User"`)},
		{name: "empty array", input: enc(`[]`)},
		{name: "null", input: enc(`null`)},
		{name: "trailing data", input: enc(`["User",1] ["User",2]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Base64JSON{}.Decode(tt.input)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestPipeString(t *testing.T) {
	c := PipeString{}

	encoded, err := c.Encode(Tuple{"Membership", 7, "x"})
	require.NoError(t, err)
	assert.Equal(t, "Membership|7|x", encoded)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, Tuple{"Membership", "7", "x"}, decoded)

	_, err = c.Encode(Tuple{"User", "a|b"})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Encode(Tuple{"User", nil})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Encode(Tuple{})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Decode("")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestSet(t *testing.T) {
	s := DefaultSet()
	assert.Equal(t, []string{Base64JSONName, PipeStringName}, s.Names())

	c, err := s.Get(Base64JSONName)
	require.NoError(t, err)
	assert.Equal(t, Base64JSONName, c.Name())

	_, err = s.Get("rot13")
	require.ErrorIs(t, err, ErrUnknownCodec)

	_, err = NewSet(Base64JSON{}, Base64JSON{})
	require.ErrorIs(t, err, ErrDuplicateCodec)
}

func TestTupleHead(t *testing.T) {
	assert.Nil(t, Tuple{}.Head())
	assert.Equal(t, "User", Tuple{"User", 1}.Head())
}
