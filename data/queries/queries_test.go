package queries

import (
	"io/fs"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryHelper_EveryPathResolves(t *testing.T) {
	paths := registeredPaths(reflect.ValueOf(QueryHelper))
	require.NotEmpty(t, paths, "no query paths in QueryHelper found")

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			assert.NotEmpty(t, strings.TrimSpace(Get(path)), "query file %q is empty", path)
		})
	}
}

// every embedded .sql file has to be reachable from QueryHelper, 1:1
func TestQueryHelper_MatchesEmbeddedFiles(t *testing.T) {
	embedded := map[string]bool{}
	err := fs.WalkDir(Files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			embedded[path] = true
		}
		return nil
	})
	require.NoError(t, err)

	paths := registeredPaths(reflect.ValueOf(QueryHelper))
	assert.Len(t, paths, len(embedded))
	for _, p := range paths {
		assert.True(t, embedded[p], "%s is registered but not embedded", p)
	}
}

func TestGet_PanicsOnUnknownPath(t *testing.T) {
	assert.Panics(t, func() { Get("select/does_not_exist.sql") })
}

// registeredPaths walks the helper struct and returns every non empty string field
func registeredPaths(v reflect.Value) []string {
	var paths []string
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.String {
			if s := field.String(); s != "" {
				paths = append(paths, s)
			}
			continue
		}
		paths = append(paths, registeredPaths(field)...)
	}
	return paths
}
