package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCruise(t *testing.T) {
	for _, name := range []string{"en608", "EN608", "ar28b", "ar31a_leg2", "en-617"} {
		assert.NoError(t, ValidateCruise(name), name)
	}
	for _, name := range []string{"", "../x", "..", "en608/../x", `en608\x`, "en 608", ".hidden", "-en608"} {
		err := ValidateCruise(name)
		assert.ErrorIs(t, err, ErrDataNotFound, name)
		assert.True(t, IsNotFound(err), name)
	}
}
