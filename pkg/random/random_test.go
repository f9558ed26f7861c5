package random

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	a, b := ID(), ID()
	require.Len(t, a, idLen)
	require.NotEqual(t, a, b)
	require.Regexp(t, "^[0-9a-f]+$", a)
}
