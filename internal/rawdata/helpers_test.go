package rawdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFile creates dir/name with content, creating dir as needed.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// rawDirFor returns <root>/raw/<cruise>/<dataType>.
func rawDirFor(root, cruise, dataType string) string {
	return filepath.Join(root, "raw", cruise, dataType)
}
