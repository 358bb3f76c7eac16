package ticket

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/internal/status"
)

func TestEncode_RoundTrip(t *testing.T) {
	claims := Claims{
		BookingID:     "bk_9f2l31xaa01m",
		AttendeeIndex: 2,
		EventID:       "ev_w81hnqy4z7",
		AttendeeName:  "Priya Sharma",
		TierName:      "VIP",
		BookingRef:    "BK1748933939ABC123",
		IssuedAtMilli: 1748933939123,
	}

	token, err := Encode(claims)
	require.NoError(t, err)

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, claims, decoded)
}

func TestEncode_FieldOrder(t *testing.T) {
	token, err := Encode(Claims{
		BookingID:     "b1",
		AttendeeIndex: 0,
		EventID:       "e1",
		AttendeeName:  "Ada",
		TierName:      "Standard",
		BookingRef:    "BKREF",
		IssuedAtMilli: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "b1|0|e1|Ada|Standard|BKREF|42", token)
}

func TestEncode_RejectsDelimiterInField(t *testing.T) {
	_, err := Encode(Claims{
		BookingID:    "b1",
		EventID:      "e1",
		AttendeeName: "Bad|Actor",
		TierName:     "VIP",
		BookingRef:   "BKREF",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrMalformedToken))
}

func TestEncode_RejectsOversizedToken(t *testing.T) {
	_, err := Encode(Claims{
		BookingID:    strings.Repeat("x", 200),
		EventID:      strings.Repeat("y", 100),
		AttendeeName: "Ada",
		TierName:     "VIP",
		BookingRef:   "BKREF",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrMalformedToken))
}

func TestDecode_WrongFieldCount(t *testing.T) {
	cases := []string{
		"",
		"only-one-field",
		"b1|0|e1|Ada|Standard|BKREF",          // six fields
		"b1|0|e1|Ada|Standard|BKREF|42|extra", // eight fields
	}
	for _, token := range cases {
		_, err := Decode(token)
		assert.True(t, errors.Is(err, status.ErrMalformedToken), "token %q", token)
	}
}

func TestDecode_NonNumericFields(t *testing.T) {
	_, err := Decode("b1|first|e1|Ada|Standard|BKREF|42")
	assert.True(t, errors.Is(err, status.ErrMalformedToken))

	_, err = Decode("b1|0|e1|Ada|Standard|BKREF|yesterday")
	assert.True(t, errors.Is(err, status.ErrMalformedToken))
}
