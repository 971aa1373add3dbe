package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadTableCSV(t *testing.T) {
	t.Parallel()

	data := []byte("Country,Portfolio ROR,Benchmark ROR\nTurkey,9.5,8.0\nUkraine,7.2,6.8\n")
	grids, err := ReadTable(data, "Q1 2025 attribution.csv")
	require.NoError(t, err)
	require.Len(t, grids, 1)
	assert.Equal(t, "Q1 2025 attribution", grids[0].SheetName)
	require.Len(t, grids[0].Rows, 3)
	assert.Equal(t, []string{"Turkey", "9.5", "8.0"}, grids[0].Rows[1])
}

func TestReadTableCSVRaggedRows(t *testing.T) {
	t.Parallel()

	data := []byte("Country,Portfolio ROR,Benchmark ROR\nTurkey,9.5\n")
	grids, err := ReadTable(data, "f.csv")
	require.NoError(t, err)
	require.Len(t, grids, 1)
	assert.Len(t, grids[0].Rows[1], 2)
}

func TestReadTableXLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	cells := map[string]interface{}{
		"A1": "Country", "B1": "Portfolio ROR", "C1": "Benchmark ROR",
		"A2": "Turkey", "B2": 9.5, "C2": 8.0,
	}
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", ref, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	grids, gErr := ReadTable(buf.Bytes(), "attribution.xlsx")
	require.NoError(t, gErr)
	require.Len(t, grids, 1)
	require.GreaterOrEqual(t, len(grids[0].Rows), 2)
	assert.Equal(t, "Country", grids[0].Rows[0][0])
	assert.Equal(t, "Turkey", grids[0].Rows[1][0])
}

func TestReadTableUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := ReadTable([]byte("x"), "report.pdf")
	assert.Error(t, err)
}

func TestReadTableEmptyCSV(t *testing.T) {
	t.Parallel()

	grids, err := ReadTable([]byte(""), "empty.csv")
	require.NoError(t, err)
	assert.Empty(t, grids)
}
