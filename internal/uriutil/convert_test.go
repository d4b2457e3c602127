package uriutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathToURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}
	tests := []struct {
		name, input, want string
	}{
		{"absolute", "/home/user/app/src/App.vue", "file:///home/user/app/src/App.vue"},
		{"root", "/", "file:///"},
		{"spaces", "/home/user/my app/Card.vue", "file:///home/user/my%20app/Card.vue"},
		{"unicode", "/home/user/文件/Card.vue", "file:///home/user/%E6%96%87%E4%BB%B6/Card.vue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PathToURI(tt.input))
		})
	}
}

func TestURIToPath(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"absolute", "file:///home/user/app/App.vue", "/home/user/app/App.vue"},
		{"percent-encoded", "file:///home/user/my%20app/Card.vue", "/home/user/my app/Card.vue"},
		{"drive letter", "file:///C:/proj/App.vue", "C:/proj/App.vue"},
		{"not a file uri", "untitled:/App.vue", "untitled:/App.vue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), URIToPath(tt.input))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "My Component.vue")
	assert.Equal(t, path, URIToPath(PathToURI(path)))
}

func TestSibling(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}
	assert.Equal(t, "file:///app/src/Counter.vue", Sibling("file:///app/src/App.vue", "Counter.vue"))
}
