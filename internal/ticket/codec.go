// Package ticket encodes and decodes the compact credential embedded in a
// ticket QR symbol. The format is seven pipe-separated fields:
//
//	bookingID|attendeeIndex|eventID|attendeeName|tierName|bookingRef|issuedAtMillis
//
// The token is diagnosable by a human but is not a capability: check-in must
// still look up the stored attendee row and verify its state.
package ticket

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
)

// Delimiter separates token fields. Field values must not contain it; the
// format carries no escaping so the QR payload stays within the varchar(255)
// budget of the attendee row.
const Delimiter = "|"

// MaxTokenLen keeps tokens within common QR error-correction capacity.
const MaxTokenLen = 250

const fieldCount = 7

// Claims is the decoded content of a ticket token.
type Claims struct {
	BookingID     string
	AttendeeIndex int
	EventID       string
	AttendeeName  string
	TierName      string
	BookingRef    string
	IssuedAtMilli int64
}

// Encode produces the token string for the given claims. It rejects field
// values containing the delimiter and tokens exceeding MaxTokenLen instead
// of emitting a payload that can never decode.
func Encode(c Claims) (string, error) {
	for _, f := range []string{c.BookingID, c.EventID, c.AttendeeName, c.TierName, c.BookingRef} {
		if strings.Contains(f, Delimiter) {
			return "", fmt.Errorf("%w: field %q contains delimiter", status.ErrMalformedToken, f)
		}
	}

	token := strings.Join([]string{
		c.BookingID,
		strconv.Itoa(c.AttendeeIndex),
		c.EventID,
		c.AttendeeName,
		c.TierName,
		c.BookingRef,
		strconv.FormatInt(c.IssuedAtMilli, 10),
	}, Delimiter)

	if len(token) > MaxTokenLen {
		return "", fmt.Errorf("%w: token length %d exceeds %d", status.ErrMalformedToken, len(token), MaxTokenLen)
	}

	return token, nil
}

// Decode parses a token back into its claims. A wrong field count or a
// non-numeric index/timestamp yields status.ErrMalformedToken.
func Decode(token string) (Claims, error) {
	parts := strings.Split(token, Delimiter)
	if len(parts) != fieldCount {
		return Claims{}, fmt.Errorf("%w: expected %d fields, got %d", status.ErrMalformedToken, fieldCount, len(parts))
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: attendee index: %v", status.ErrMalformedToken, err)
	}

	issuedAt, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: issued-at: %v", status.ErrMalformedToken, err)
	}

	return Claims{
		BookingID:     parts[0],
		AttendeeIndex: index,
		EventID:       parts[2],
		AttendeeName:  parts[3],
		TierName:      parts[4],
		BookingRef:    parts[5],
		IssuedAtMilli: issuedAt,
	}, nil
}
