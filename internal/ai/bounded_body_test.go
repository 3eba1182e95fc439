package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBoundedBody(t *testing.T) {
	data, err := readBoundedBody(strings.NewReader("12345678"), 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345678"), data)

	_, err = readBoundedBody(strings.NewReader("123456789"), 8)
	assert.ErrorIs(t, err, errBodyTooLarge)

	data, err = readBoundedBody(strings.NewReader(""), 8)
	require.NoError(t, err)
	assert.Empty(t, data)
}
