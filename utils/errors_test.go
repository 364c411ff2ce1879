package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestNewUnexpectedTypeError(t *testing.T) {
	err := NewUnexpectedTypeError((*int)(nil), "x")
	test.That(t, err, test.ShouldBeError, "expected *int but got string")
}
