package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"meeplepoint-rewards/pkg/errutil"
)

// ErrStatus extracts the BaseError status from err and fails the test
// when err is not a BaseError.
func ErrStatus(t *testing.T, err error) errutil.CoreStatus {
	t.Helper()

	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected errutil.BaseError, got %T: %v", err, err)
	return be.Status()
}
