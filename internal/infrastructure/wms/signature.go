package wms

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/ucarion/c14n"
	"golang.org/x/crypto/blake2b"
)

// ErrBadSignature firma ausente o que no corresponde al cuerpo.
var ErrBadSignature = errors.New("wms: firma inválida")

// SignatureHeader cabecera HTTP con la firma hex del cuerpo canónico.
const SignatureHeader = "X-WMS-Signature"

// Signer firma y verifica documentos XML con BLAKE2b-256 con llave sobre la forma canónica (C14N),
// de modo que espacios o el orden de atributos no cambian la firma.
type Signer struct {
	key []byte
}

// NewSigner construye el firmador. BLAKE2b admite llaves de hasta 64 bytes.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) > blake2b.Size {
		return nil, fmt.Errorf("wms: secreto de firma de más de %d bytes", blake2b.Size)
	}
	return &Signer{key: []byte(secret)}, nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// Sign devuelve la firma hex de payload.
func (s *Signer) Sign(payload []byte) (string, error) {
	canon, err := canonicalize(payload)
	if err != nil {
		return "", fmt.Errorf("wms: canonicalizar: %w", err)
	}
	h, err := blake2b.New256(s.key)
	if err != nil {
		return "", fmt.Errorf("wms: iniciar blake2b: %w", err)
	}
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify compara en tiempo constante la firma recibida contra la calculada.
func (s *Signer) Verify(payload []byte, signature string) error {
	if signature == "" {
		return ErrBadSignature
	}
	want, err := s.Sign(payload)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(signature)) != 1 {
		return ErrBadSignature
	}
	return nil
}
