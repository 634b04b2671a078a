// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riddlegate/riddlegate/internal/store"
	"github.com/riddlegate/riddlegate/pkg/errutil"
)

func TestConnect_BadDSN(t *testing.T) {
	_, err := store.Connect(context.Background(), "://not-a-dsn", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "STORE_BAD_DSN")
}
