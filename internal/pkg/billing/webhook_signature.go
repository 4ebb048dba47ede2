package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the HTTP header carrying the provider's event signature.
const SignatureHeader = "Fanlume-Billing-Signature"

// signatureTolerance bounds how far a signed timestamp may drift from the
// server clock before the delivery is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// VerifyWebhookSignature authenticates a raw webhook body against the shared
// secret. The header carries `t=<unix>,v1=<hex>` elements; the signature is
// HMAC-SHA256 over "<t>.<body>". Comparison is constant time and the result
// is a single aggregate boolean: callers never learn which part mismatched.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string, now time.Time) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	var timestamp int64 = -1
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(strings.ToLower(kv[1]))
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}
	if timestamp < 0 || len(candidates) == 0 {
		return false
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range candidates {
		if hmac.Equal(expected, sig) {
			return true
		}
	}
	return false
}

// VerifyEvent authenticates and then parses an inbound event. Parsing only
// happens after signature success; nothing in the payload is trusted before
// that. Any failure collapses into ErrInvalidSignature.
func VerifyEvent(payload []byte, signatureHeader, webhookSecret string) (*Event, error) {
	if !VerifyWebhookSignature(payload, signatureHeader, webhookSecret, time.Now()) {
		return nil, ErrInvalidSignature
	}

	var envelope struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	if strings.TrimSpace(envelope.ID) == "" || strings.TrimSpace(envelope.Type) == "" {
		return nil, fmt.Errorf("event payload missing id or type")
	}

	return &Event{
		ID:        envelope.ID,
		Type:      envelope.Type,
		CreatedAt: time.Unix(envelope.Created, 0),
		Raw:       envelope.Data.Object,
	}, nil
}
