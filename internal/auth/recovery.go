// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"crypto/rand"
	"strings"

	"github.com/samber/oops"
)

// Recovery key layout: ten single-use keys of four dash-separated groups.
const (
	recoveryKeyCount     = 10
	recoveryGroupLen     = 4
	recoveryGroupsPerKey = 4
)

// recoveryCharset deliberately omits 'l' to avoid 1/l confusion when keys
// are read back over the phone.
const recoveryCharset = "abcdefghijkmnopqrstuvwxyz0123456789"

// GenerateRecoveryKeys produces the ten single-use recovery keys assigned
// at activation, each formatted xxxx-xxxx-xxxx-xxxx.
//
// Consumption and validation of recovery keys is owned by the account
// recovery flow, not by the login path.
func GenerateRecoveryKeys() ([]string, error) {
	keys := make([]string, 0, recoveryKeyCount)
	for range recoveryKeyCount {
		groups := make([]string, 0, recoveryGroupsPerKey)
		for range recoveryGroupsPerKey {
			group, err := randomGroup()
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
		keys = append(keys, strings.Join(groups, "-"))
	}
	return keys, nil
}

func randomGroup() (string, error) {
	buf := make([]byte, recoveryGroupLen)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_RECOVERY_KEYGEN_FAILED").Wrap(err)
	}
	for i, b := range buf {
		buf[i] = recoveryCharset[int(b)%len(recoveryCharset)]
	}
	return string(buf), nil
}
