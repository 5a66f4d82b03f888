// Package claims turns claims records into signed JSON Web Tokens.
//
// A Serializer is configured once with the claim columns of the token shape,
// a secret and optional signing defaults. Serialize copies the declared
// columns out of a record, normalises the expiry claim, fills in audience,
// issuer and expiry defaults that nobody set, and signs the result.
//
// Default filling never overrides: a value in the record wins over the
// configured SignOptions, which win over the package defaults.
//
//	s := claims.NewSerializer([]string{"role", "user_id", "exp"}, []byte(secret))
//	token, err := s.Serialize(map[string]any{"role": "app_user", "user_id": 42})
package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Registered claim names handled by the serializer.
const (
	ClaimAudience  = "aud"
	ClaimIssuer    = "iss"
	ClaimExpiry    = "exp"
	ClaimIssuedAt  = "iat"
	ClaimNotBefore = "nbf"
	ClaimSubject   = "sub"
	ClaimJWTID     = "jti"
)

// Defaults applied when neither the record nor the SignOptions set a value.
const (
	DefaultAudience  = "nodeid"
	DefaultIssuer    = "nodeid"
	DefaultExpiresIn = 24 * time.Hour
	DefaultAlgorithm = "HS256"
)

// Sentinel errors for claims serialization.
var (
	// ErrMissingSecret indicates the serializer has no signing secret configured.
	ErrMissingSecret = errors.New("missing signing secret")

	// ErrInvalidExpiry indicates the expiry claim could not be read as a number.
	ErrInvalidExpiry = errors.New("invalid expiry claim")

	// ErrUnsupportedAlgorithm indicates an unknown or disallowed signing algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	// ErrInvalidKey indicates the secret cannot be used with the chosen algorithm.
	ErrInvalidKey = errors.New("invalid signing key")
)

// SignOptions are the signing defaults configured for a deployment. Zero
// values mean "not configured".
type SignOptions struct {
	// Algorithm is the JWS algorithm, e.g. "HS256" or "RS256".
	Algorithm string `yaml:"algorithm,omitempty"`

	// Audience, Issuer and Subject fill the matching claims when the record
	// does not carry them.
	Audience []string `yaml:"audience,omitempty"`
	Issuer   string   `yaml:"issuer,omitempty"`
	Subject  string   `yaml:"subject,omitempty"`

	// ExpiresIn sets exp relative to the signing time.
	ExpiresIn time.Duration `yaml:"expires_in,omitempty"`

	// NotBefore sets nbf relative to the signing time.
	NotBefore time.Duration `yaml:"not_before,omitempty"`

	// KeyID is written to the "kid" header.
	KeyID string `yaml:"key_id,omitempty"`

	// GenerateJWTID adds a random "jti" claim.
	GenerateJWTID bool `yaml:"generate_jwt_id,omitempty"`
}

// Payload is the claim set handed to the signer.
type Payload map[string]any

// Signer signs an assembled payload. The serializer never implements
// cryptography itself.
type Signer interface {
	Sign(payload Payload, secret []byte, opts SignOptions) (string, error)
}

// Serializer assembles and signs claims tokens. It is immutable and safe for
// concurrent use.
type Serializer struct {
	columns []string
	secret  []byte
	opts    SignOptions
	signer  Signer
	now     func() time.Time
	newID   func() string
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithSignOptions sets the deployment-wide signing defaults.
func WithSignOptions(opts SignOptions) Option {
	return func(s *Serializer) {
		s.opts = opts
	}
}

// WithSigner replaces the signer, which defaults to JWTSigner.
func WithSigner(signer Signer) Option {
	return func(s *Serializer) {
		s.signer = signer
	}
}

// WithClock overrides the time source used for iat, exp and nbf.
func WithClock(now func() time.Time) Option {
	return func(s *Serializer) {
		s.now = now
	}
}

// NewSerializer creates a serializer for a token shape with the given claim
// columns. A missing secret is only reported when Serialize is called.
func NewSerializer(columns []string, secret []byte, opts ...Option) *Serializer {
	cols := make([]string, len(columns))
	copy(cols, columns)

	s := &Serializer{
		columns: cols,
		secret:  secret,
		signer:  JWTSigner{},
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Columns returns the declared claim columns.
func (s *Serializer) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Assemble builds the payload that Serialize would sign, defaults included.
func (s *Serializer) Assemble(record map[string]any) (Payload, error) {
	p := make(Payload, len(s.columns)+4)

	for _, col := range s.columns {
		v, ok := record[col]
		if !ok {
			continue
		}
		if col != ClaimExpiry {
			p[col] = v
			continue
		}
		if !truthy(v) {
			continue
		}
		exp, err := parseExpiry(v)
		if err != nil {
			return nil, err
		}
		p[ClaimExpiry] = exp
	}

	now := s.now()

	if _, ok := p[ClaimIssuedAt]; !ok {
		p[ClaimIssuedAt] = now.Unix()
	}

	if !truthy(p[ClaimAudience]) {
		switch len(s.opts.Audience) {
		case 0:
			p[ClaimAudience] = DefaultAudience
		case 1:
			p[ClaimAudience] = s.opts.Audience[0]
		default:
			aud := make([]string, len(s.opts.Audience))
			copy(aud, s.opts.Audience)
			p[ClaimAudience] = aud
		}
	}

	if !truthy(p[ClaimIssuer]) {
		if s.opts.Issuer != "" {
			p[ClaimIssuer] = s.opts.Issuer
		} else {
			p[ClaimIssuer] = DefaultIssuer
		}
	}

	if !truthy(p[ClaimExpiry]) {
		expiresIn := s.opts.ExpiresIn
		if expiresIn <= 0 {
			expiresIn = DefaultExpiresIn
		}
		p[ClaimExpiry] = now.Add(expiresIn).Unix()
	}

	if s.opts.Subject != "" && !truthy(p[ClaimSubject]) {
		p[ClaimSubject] = s.opts.Subject
	}
	if s.opts.NotBefore > 0 && !truthy(p[ClaimNotBefore]) {
		p[ClaimNotBefore] = now.Add(s.opts.NotBefore).Unix()
	}
	if s.opts.GenerateJWTID && !truthy(p[ClaimJWTID]) {
		p[ClaimJWTID] = s.newID()
	}

	return p, nil
}

// Serialize assembles and signs record.
func (s *Serializer) Serialize(record map[string]any) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	p, err := s.Assemble(record)
	if err != nil {
		return "", err
	}

	token, err := s.signer.Sign(p, s.secret, s.opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign claims: %w", err)
	}
	return token, nil
}

// truthy mirrors the loose truthiness used for optional claim values: nil,
// false, zero, NaN and empty strings are unset.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case uint:
		return x != 0
	case uint32:
		return x != 0
	case uint64:
		return x != 0
	case time.Time:
		return !x.IsZero()
	}
	return true
}

func parseExpiry(v any) (float64, error) {
	var text string
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case time.Time:
		return float64(x.Unix()), nil
	case json.Number:
		text = x.String()
	case string:
		text = x
	case bool:
		// true is the only truthy bool and has no numeric reading
		return 0, fmt.Errorf("%w: %v", ErrInvalidExpiry, x)
	default:
		text = fmt.Sprint(x)
	}

	// Only the leading number counts, so "1700000000abc" reads as 1700000000.
	prefix := numericPrefix.FindString(strings.TrimSpace(text))
	if prefix == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, text)
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiry, text)
	}
	return f, nil
}

var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)
