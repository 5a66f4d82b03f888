package claims

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTSigner signs payloads with github.com/golang-jwt/jwt/v5.
//
// HMAC algorithms use the secret bytes directly; RSA, RSA-PSS, ECDSA and
// EdDSA expect a PEM encoded private key.
type JWTSigner struct{}

// Sign implements Signer.
func (JWTSigner) Sign(payload Payload, secret []byte, opts SignOptions) (string, error) {
	alg := opts.Algorithm
	if alg == "" {
		alg = DefaultAlgorithm
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}

	key, err := signingKey(method, secret)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(method, jwt.MapClaims(payload))
	if opts.KeyID != "" {
		token.Header["kid"] = opts.KeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with %s: %w", alg, err)
	}
	return signed, nil
}

func signingKey(method jwt.SigningMethod, secret []byte) (any, error) {
	var (
		key any
		err error
	)
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		return secret, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err = jwt.ParseRSAPrivateKeyFromPEM(secret)
	case *jwt.SigningMethodECDSA:
		key, err = jwt.ParseECPrivateKeyFromPEM(secret)
	case *jwt.SigningMethodEd25519:
		key, err = jwt.ParseEdPrivateKeyFromPEM(secret)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, method.Alg())
	}
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidKey, method.Alg(), err)
	}
	return key, nil
}
