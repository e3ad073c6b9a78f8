package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnsupportedExchangeFailsFast(t *testing.T) {
	_, err := New("binanec", Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exchange")
	assert.Contains(t, err.Error(), "mock")
}

func TestNewMockNeedsNoCredentials(t *testing.T) {
	c, err := New("mock", Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.ID())
}

func TestRegisterAddsConstructor(t *testing.T) {
	Register("testex", func(Credentials) (Client, error) {
		m := NewMockClient()
		m.Name = "testex"
		return m, nil
	})
	c, err := New("TestEx", Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "testex", c.ID())
	assert.Contains(t, Supported(), "testex")
}
