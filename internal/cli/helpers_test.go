package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// splitDigest is the rows digest of the one-product workspace below. The
// harness scenario single_product_split carries the same inputs.
const splitDigest = "ae2467952e577a0519710574ab2b42d7e70f387a3637a7ee3477ebe4fb640237"

const testConfig = `inputs:
  orders: "ORDERS*.csv"
  inventory: "INVENTORY*.csv"
  ppc: "SALESPERDAY*.csv"
  reference:
    workbook: reference
pipeline:
  granularity: daily
  smoothing_window: 2
sink:
  driver: sqlite
  path: out.db
  dataset: test-ds
manifest:
  dir: manifests
metrics:
  textfile: metrics.prom
`

// newWorkspace writes a config, one month of exports and a reference
// directory for product P1 (Acme Mugs, ASIN B1). It returns the config path.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"salesmix.yaml": testConfig,
		"ORDERS-2019-01.csv": "Order Date,Market Place,ASIN,Price,Qty,Refunded,Sales Channel,Customer Pays\n" +
			"2019-01-05,US,B1,$16.00,2,No,Amazon,$16.00\n" +
			"2019-01-06,US,B1,$45.00,3,No,Amazon,$45.00\n",
		"INVENTORY january 2019.csv": "Market Place,ASIN,Out of stock days\nUS,B1,3\n",
		"SALESPERDAY-2019-01.csv":    "Date,Market Place,ASIN,PPC Orders\n2019-01-05,US,B1,1\n",
		filepath.Join("reference", "Input-ASIN-Cin7-Map.csv"):      "Amazon-ASIN,Cin7\nB1,P1\n",
		filepath.Join("reference", "Input-Cin7-Product-Map.csv"):   "Cin7,Brand,Product Group\nP1,Acme,Mugs\nP2,Acme,Plates\n",
		filepath.Join("reference", "Input-Liquidation-Limits.csv"): "Cin7,Year,Month,Normal Price,Liquidation Limit\nP1,2019,January,10,0\n",
	}
	for name, content := range files {
		writeTestFile(t, filepath.Join(dir, name), content)
	}
	return filepath.Join(dir, "salesmix.yaml")
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func replaceOnce(t *testing.T, s, old, new string) string {
	t.Helper()
	require.Equal(t, 1, strings.Count(s, old), "expected exactly one %q", old)
	return strings.Replace(s, old, new, 1)
}
