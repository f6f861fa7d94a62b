package tabular

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValuesTrimsHeader(t *testing.T) {
	tbl := FromValues("orders", [][]string{
		{" ASIN ", "Qty"},
		{"B001", " 3 "},
		{"B002"},
	})

	assert.Equal(t, []string{"ASIN", "Qty"}, tbl.Header)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "3", tbl.Cell(tbl.Rows[0], "Qty"))
	assert.Equal(t, "", tbl.Cell(tbl.Rows[1], "Qty"), "short rows read as empty")
	assert.Equal(t, "", tbl.Cell(tbl.Rows[0], "Price"), "absent columns read as empty")
}

func TestRequireReportsEveryMissingColumn(t *testing.T) {
	tbl := New("orders", "ASIN", "Qty")

	require.NoError(t, tbl.Require("ASIN"))

	err := tbl.Require("ASIN", "Price", "Market Place")
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"Price", "Market Place"}, missing.Columns)
	assert.Contains(t, err.Error(), `table "orders"`)
}

func TestConcatRejectsDifferentHeader(t *testing.T) {
	a := New("a", "x", "y")
	a.Append("1", "2")
	b := New("b", "x", "y")
	b.Append("3", "4")
	c := New("c", "x")
	c.Append("5")

	require.NoError(t, a.Concat(b, New("empty", "z")))
	assert.Equal(t, 2, a.Len())
	assert.Error(t, a.Concat(c))
}

func TestDigestIsStable(t *testing.T) {
	a := New("t", "x")
	a.Append("1")
	b := New("other-name", "x")
	b.Append("1")

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)

	b.Append("2")
	db2, err := b.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, db2)
}

func TestDecodeCSVLatin1(t *testing.T) {
	data := []byte("Market Place,Brand\nUK,Caf\xe9\n")

	tbl, err := DecodeCSV(bytes.NewReader(data), "orders", WithLatin1())
	require.NoError(t, err)
	assert.Equal(t, "Café", tbl.Cell(tbl.Rows[0], "Brand"))
}

func TestWriteCSV(t *testing.T) {
	tbl := New("out", "Cin7", "Qty")
	tbl.Append("P1", "10")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "Cin7,Qty\nP1,10\n", buf.String())
}

func TestWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calculations.xlsx")
	out := New("Output File", "Cin7", "Sales QTY")
	out.Append("P1", "10")
	sums := New("Calc-SUM-PPC-Orders", "Market Place", "PPC Orders")
	sums.Append("US", "6")

	require.NoError(t, WriteXLSX(path, out, sums))

	got, err := ReadXLSX(path, "Calc-SUM-PPC-Orders")
	require.NoError(t, err)
	assert.Equal(t, sums.Header, got.Header)
	assert.Equal(t, "6", got.Cell(got.Rows[0], "PPC Orders"))

	first, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Output File", first.Name)
	assert.Equal(t, "10", first.Cell(first.Rows[0], "Sales QTY"))
}

func TestReadXLSXMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.xlsx")
	tbl := New("Input-ASIN-Cin7-Map", "Amazon-ASIN", "Cin7")
	require.NoError(t, WriteXLSX(path, tbl))

	_, err := ReadXLSX(path, "Input-Historical-Shopify")
	assert.ErrorIs(t, err, ErrNoSheet)
}
