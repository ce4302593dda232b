package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum accepted age of a signed webhook.
const DefaultTolerance = 5 * time.Minute

// ErrSignature is wrapped by every webhook verification failure.
var ErrSignature = errors.New("invalid webhook signature")

// VerifySignature checks a Stripe-Signature header ("t=<unix>,v1=<hex>")
// against payload. Any v1 entry may match; the timestamp must be within
// tolerance of now. A zero tolerance disables the age check.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrSignature)
		}
	}

	expected := computeSignature(payload, secret, ts)
	for _, s := range sigs {
		if hmac.Equal(expected, s) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching v1 signature", ErrSignature)
}

// SignatureHeader builds a header value for payload signed at t, in the
// format VerifySignature accepts.
func SignatureHeader(payload []byte, secret string, t time.Time) string {
	ts := t.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(computeSignature(payload, secret, ts)))
}

func computeSignature(payload []byte, secret string, ts int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	var (
		ts    int64
		found bool
		sigs  [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrSignature)
			}
			ts, found = n, true
		case "v1":
			b, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			sigs = append(sigs, b)
		}
	}
	if !found {
		return 0, nil, fmt.Errorf("%w: missing timestamp", ErrSignature)
	}
	if len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: missing v1 signature", ErrSignature)
	}
	return ts, sigs, nil
}
