package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesFields(t *testing.T) {
	s := String()
	require.True(t, strings.HasPrefix(s, "hark "))
	require.Contains(t, s, "commit=")
	require.Contains(t, s, "go=go")
}
