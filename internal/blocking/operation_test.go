package blocking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOperationType_MatchesAnyCase(t *testing.T) {
	cases := map[string]OperationType{
		"SLEEP":      Sleep,
		"sleep":      Sleep,
		"Sleep":      Sleep,
		"FILE_IO":    FileIO,
		"file_io":    FileIO,
		"File_Io":    FileIO,
		"NETWORK_IO": NetworkIO,
		"network_io": NetworkIO,
		"MIXED":      Mixed,
		"mIxEd":      Mixed,
	}
	for in, want := range cases {
		got, ok := ParseOperationType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseOperationType_UnknownFallsBackToSleep(t *testing.T) {
	for _, in := range []string{"", "nap", "file-io", "FILEIO", "UNKNOWN", "sleep!", " mixed ", "sleep\n"} {
		got, ok := ParseOperationType(in)
		assert.False(t, ok, in)
		assert.Equal(t, Sleep, got, in)
	}
}

func TestOperationType_String(t *testing.T) {
	assert.Equal(t, "SLEEP", Sleep.String())
	assert.Equal(t, "FILE_IO", FileIO.String())
	assert.Equal(t, "NETWORK_IO", NetworkIO.String())
	assert.Equal(t, "MIXED", Mixed.String())
	assert.Equal(t, "UNKNOWN", OperationType(42).String())
}
