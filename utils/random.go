package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateBookingReference returns a human-readable reference like
// BK1748933939ABC123. Uniqueness is enforced by the bookings collection;
// callers retry on collision.
func GenerateBookingReference() (string, error) {
	code, err := GenerateCode(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BK%d%s", time.Now().Unix(), code), nil
}

// GenerateTransactionID returns a gateway-style transaction id (TXN prefix).
func GenerateTransactionID() (string, error) {
	code, err := GenerateCode(2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TXN%d%s", time.Now().UnixMilli(), code), nil
}
