package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want inference.Query
	}{
		{"B", inference.Query{Variable: "B"}},
		{"  B  ", inference.Query{Variable: "B"}},
		{"B |", inference.Query{Variable: "B"}},
		{"B | A=true", inference.Query{Variable: "B", Evidence: map[string]string{"A": "true"}}},
		{"Rain|WetGrass=true Cloudy=false", inference.Query{Variable: "Rain", Evidence: map[string]string{
			"WetGrass": "true", "Cloudy": "false",
		}}},
		{"Rain | WetGrass = true", inference.Query{Variable: "Rain", Evidence: map[string]string{"WetGrass": "true"}}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"| A=true",
		"A B",
		"B | A",
		"B | A=",
		"B | =true",
		"B | A=true A=false",
		"B | A==true",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, internalerr.ErrInvalidQuery, "%q", in)
	}
}

func TestParseRepeatedSameValueIsAllowed(t *testing.T) {
	q, err := Parse("B | A=true A=true")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "true"}, q.Evidence)
}

func TestString(t *testing.T) {
	assert.Equal(t, "B", String(inference.Query{Variable: "B"}))
	assert.Equal(t, "B | A=true C=false", String(inference.Query{
		Variable: "B",
		Evidence: map[string]string{"C": "false", "A": "true"},
	}))
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("XQUERY B | A=true")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbXQuery, Arg: "B | A=true"}, cmd)

	cmd, err = ParseCommand("load  nets/alarm.bn ")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbLoad, Arg: "nets/alarm.bn"}, cmd)

	cmd, err = ParseCommand("quit")
	require.NoError(t, err)
	assert.Equal(t, VerbQuit, cmd.Verb)

	cmd, err = ParseCommand("history 5")
	require.NoError(t, err)
	assert.Equal(t, "5", cmd.Arg)
}

func TestParseCommandErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "frobnicate x", "xquery", "load "} {
		_, err := ParseCommand(in)
		assert.ErrorIs(t, err, internalerr.ErrInvalidQuery, "%q", in)
	}
}
