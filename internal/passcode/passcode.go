// Package passcode signs the payload printed on a participant's virtual card
// so organizers can check the holder in by scanning it.
package passcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	registrationPrefix = "registration:"
	eventPrefix        = "event:"
	signaturePrefix    = "signature:"
)

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Encode builds "registration:<id>;event:<id>;signature:<hmac>".
func (s *Signer) Encode(registrationID, eventID uuid.UUID) string {
	return fmt.Sprintf("%s%s;%s%s;%s%s",
		registrationPrefix, registrationID.String(),
		eventPrefix, eventID.String(),
		signaturePrefix, s.sign(registrationID, eventID),
	)
}

// Decode verifies data and returns the registration it names.
func (s *Signer) Decode(data string) (uuid.UUID, error) {
	parts := strings.Split(data, ";")
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], registrationPrefix) ||
		!strings.HasPrefix(parts[1], eventPrefix) ||
		!strings.HasPrefix(parts[2], signaturePrefix) {
		return uuid.Nil, fmt.Errorf("invalid QR data format")
	}

	registrationID, err := uuid.Parse(strings.TrimPrefix(parts[0], registrationPrefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid registration ID format")
	}
	eventID, err := uuid.Parse(strings.TrimPrefix(parts[1], eventPrefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid event ID format")
	}

	signature := strings.TrimPrefix(parts[2], signaturePrefix)
	expected := s.sign(registrationID, eventID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return uuid.Nil, fmt.Errorf("invalid QR code signature")
	}
	return registrationID, nil
}

func (s *Signer) sign(registrationID, eventID uuid.UUID) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(registrationID.String() + ":" + eventID.String()))
	return hex.EncodeToString(h.Sum(nil))
}
