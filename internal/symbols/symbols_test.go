package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSymbols(t *testing.T) {
	l := NewLoader()

	stocks, err := l.LoadSymbols([]string{"aapl, msft", "AAPL", "brk.b", ""})
	require.NoError(t, err)
	require.Len(t, stocks, 3)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
	assert.Equal(t, "Apple Inc.", stocks[0].Name)
	assert.Equal(t, "BRK.B", stocks[2].Symbol)
	assert.Equal(t, "US", stocks[2].Exchange)

	_, err = l.LoadSymbols([]string{"AA$PL"})
	assert.Error(t, err)
}

func TestLoadUniverse(t *testing.T) {
	l := NewLoader()

	stocks, err := l.LoadUniverse(UniverseTest)
	require.NoError(t, err)
	assert.Len(t, stocks, len(TestSymbols))

	_, err = l.LoadUniverse("dow")
	assert.Error(t, err)
}

func TestParseUniverse(t *testing.T) {
	u, err := ParseUniverse(" NASDAQ100 ")
	require.NoError(t, err)
	assert.Equal(t, UniverseNasdaq100, u)

	_, err = ParseUniverse("russell")
	assert.Error(t, err)
}
