package passcode

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"
)

const friendPassPrefix = "SPIN8-FP"

var ErrInvalidPayload = errors.New("invalid friend pass payload")

// FriendPassPayload is the text encoded in a friend pass QR code. The
// signature lets the front desk verify a scanned pass offline.
func FriendPassPayload(redemptionID, secret string) string {
	return friendPassPrefix + ":" + redemptionID + ":" + sign(redemptionID, secret)
}

// VerifyFriendPass returns the redemption ID of a valid payload.
func VerifyFriendPass(payload, secret string) (string, error) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != 3 || parts[0] != friendPassPrefix || parts[1] == "" {
		return "", ErrInvalidPayload
	}
	if !hmac.Equal([]byte(parts[2]), []byte(sign(parts[1], secret))) {
		return "", ErrInvalidPayload
	}
	return parts[1], nil
}

// FriendPassPNG renders the payload as a size x size PNG.
func FriendPassPNG(redemptionID, secret string, size int) ([]byte, error) {
	qr, err := qrcode.New(FriendPassPayload(redemptionID, secret), qrcode.Medium)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sign(redemptionID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(redemptionID))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}
