// Package reference generates human-readable identifiers for bookings and
// payments. Format: PREFIX-YYYYMMDD-XXXXXX with a random hex suffix.
package reference

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// BookingPrefix and PaymentPrefix are the reference prefixes in use
const (
	BookingPrefix = "BK"
	PaymentPrefix = "PAY"
)

// New generates a reference like BK-20260115-A1B2C3
func New(prefix string) (string, error) {
	randomBytes := make([]byte, 3)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	suffix := strings.ToUpper(hex.EncodeToString(randomBytes))
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), suffix), nil
}

// NewTransactionID generates an internal transaction identifier such as
// REF-20060102150405-A1B2C3D4, used for stubbed gateway references
func NewTransactionID(prefix string) (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	suffix := strings.ToUpper(hex.EncodeToString(randomBytes))
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102150405"), suffix), nil
}
