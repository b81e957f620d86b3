package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetIDFlags() {
	testIDsFlag = ""
	testIDsFileFlag = ""
}

func TestReadMutantIDs(t *testing.T) {
	t.Run("from --ids csv", func(t *testing.T) {
		resetIDFlags()
		testIDsFlag = "1, 2,3"

		ids, err := readMutantIDs(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, ids)
	})

	t.Run("invalid tokens are skipped", func(t *testing.T) {
		resetIDFlags()
		testIDsFlag = "1,abc,3"

		ids, err := readMutantIDs(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, ids)
	})

	t.Run("from a file with mixed separators", func(t *testing.T) {
		resetIDFlags()

		path := filepath.Join(t.TempDir(), "ids.txt")
		require.NoError(t, os.WriteFile(path, []byte("4\n5\t6, 7"), 0o644))
		testIDsFileFlag = path

		ids, err := readMutantIDs(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 5, 6, 7}, ids)
	})

	t.Run("from stdin with dash", func(t *testing.T) {
		resetIDFlags()
		testIDsFileFlag = "-"

		ids, err := readMutantIDs(strings.NewReader("8 9"))
		require.NoError(t, err)
		assert.Equal(t, []int64{8, 9}, ids)
	})

	t.Run("ids-file wins over ids", func(t *testing.T) {
		resetIDFlags()
		testIDsFlag = "1"
		testIDsFileFlag = "-"

		ids, err := readMutantIDs(strings.NewReader("2"))
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids)
	})

	t.Run("no source is an error", func(t *testing.T) {
		resetIDFlags()

		_, err := readMutantIDs(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestParseCSV(t *testing.T) {
	assert.Equal(t, []string{"ER", "CR"}, parseCSV("ER, CR"))
	assert.Equal(t, []string{"ER"}, parseCSV("ER,,"))
	assert.Nil(t, parseCSV(""))
}

func TestResolveIncludeList(t *testing.T) {
	t.Run("positional args win", func(t *testing.T) {
		assert.Equal(t, []string{"src"}, resolveIncludeList([]string{"src"}))
	})

	t.Run("defaults to the current directory", func(t *testing.T) {
		assert.Equal(t, []string{"."}, resolveIncludeList(nil))
	})
}
