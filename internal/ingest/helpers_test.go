package ingest_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func generateCSV(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("sku,name,description\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "SKU-%d,Product %d,Description %d\n", i, i, i)
	}
	return writeCSV(t, b.String())
}
