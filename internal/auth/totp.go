// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // RFC 6238 interoperability; authenticator apps expect SHA-1
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// One-time-code parameters (RFC 6238 defaults).
const (
	totpSecretBytes = 32
	totpPeriod      = 30 * time.Second
	totpDigits      = 6
	// totpSkew allows one window of clock drift on each side.
	totpSkew = 1
)

// OneTimeCodeVerifier verifies time-windowed one-time codes against a
// shared secret and provisions new secrets. It is stateless; every call is
// a pure function of (secret, code, now).
type OneTimeCodeVerifier struct {
	issuer string
}

// NewOneTimeCodeVerifier creates a verifier. The issuer appears in
// provisioning URIs shown to authenticator apps.
func NewOneTimeCodeVerifier(issuer string) *OneTimeCodeVerifier {
	return &OneTimeCodeVerifier{issuer: issuer}
}

// Verify checks the submitted code against the shared secret, allowing
// totpSkew windows of drift on each side. Wrong code and expired window
// both return ErrVerificationFailed; distinguishing them would leak an
// oracle.
func (v *OneTimeCodeVerifier) Verify(secret []byte, code string, now time.Time) error {
	if len(secret) == 0 {
		return oops.Code("AUTH_OTC_NO_SECRET").Wrap(ErrVerificationFailed)
	}
	if len(code) != totpDigits || !isDigits(code) {
		return oops.Code("AUTH_OTC_REJECTED").Wrap(ErrVerificationFailed)
	}

	base := now.Unix() / int64(totpPeriod/time.Second)
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		expected := hotpCode(secret, uint64(counter))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return nil
		}
	}

	return oops.Code("AUTH_OTC_REJECTED").Wrap(ErrVerificationFailed)
}

// ProvisionSecret generates a fresh shared secret. The secret must only be
// persisted as the active one after the user has confirmed one valid code
// derived from it.
func (v *OneTimeCodeVerifier) ProvisionSecret() ([]byte, error) {
	secret := make([]byte, totpSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, oops.Code("AUTH_OTC_PROVISION_FAILED").Wrap(err)
	}
	return secret, nil
}

// ProvisionURI renders the otpauth:// URI that authenticator apps scan.
func (v *OneTimeCodeVerifier) ProvisionURI(secret []byte, account string) string {
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)

	q := url.Values{}
	q.Set("secret", enc.EncodeToString(secret))
	q.Set("issuer", v.issuer)
	q.Set("period", strconv.Itoa(int(totpPeriod/time.Second)))
	q.Set("digits", strconv.Itoa(totpDigits))
	q.Set("algorithm", "SHA1")

	return "otpauth://totp/" + url.PathEscape(v.issuer+":"+account) + "?" + q.Encode()
}

// hotpCode computes the RFC 4226 truncated HMAC-SHA1 code for a counter.
func hotpCode(secret []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
