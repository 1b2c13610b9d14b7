package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type occupant struct {
	nim  string
	room string
}

func TestWriteCSV(t *testing.T) {
	columns := []Column[occupant]{
		{Header: "nim", Value: func(o occupant) string { return o.nim }},
		{Header: "room", Value: func(o occupant) string { return o.room }},
	}
	var buf bytes.Buffer
	err := WriteCSV(&buf, columns, []occupant{{"2024001", "B1-1101"}, {"2024002", "B2, annex"}})
	require.NoError(t, err)
	assert.Equal(t, "nim,room\n2024001,B1-1101\n2024002,\"B2, annex\"\n", buf.String())
}

func TestWriteCSVRequiresColumns(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteCSV[occupant](&buf, nil, nil))
}
