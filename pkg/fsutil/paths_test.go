package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinContained(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "store")

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "plain", rel: "web/github", want: filepath.Join(root, "web", "github")},
		{name: "root itself", rel: "", want: root},
		{name: "dot segments inside", rel: "a/../b", want: filepath.Join(root, "b")},
		{name: "absolute treated as relative", rel: "/abs/path", want: filepath.Join(root, "abs", "path")},
		{name: "dotdot prefix name is fine", rel: "..hidden", want: filepath.Join(root, "..hidden")},
		{name: "escapes", rel: "../etc/passwd", wantErr: true},
		{name: "escapes after descent", rel: "a/../../x", wantErr: true},
		{name: "parent of root", rel: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinContained(root, tt.rel)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutsideRoot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetDataDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, AppName), got)
}

func TestGetStoreDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := GetStoreDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, StoreDirName), got)
}
