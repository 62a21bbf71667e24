package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStore_OpenGetClose(t *testing.T) {
	store := NewDocumentStore()

	uri := "file:///test/connector.yaml"
	content := "query: SELECT * FROM users"
	store.Open(uri, content, 1)

	doc := store.Get(uri)
	require.NotNil(t, doc)
	assert.Equal(t, uri, doc.URI)
	assert.Equal(t, content, doc.Content)
	assert.Equal(t, 1, doc.Version)

	store.Close(uri)
	assert.Nil(t, store.Get(uri))
}

func TestDocumentStore_Update(t *testing.T) {
	store := NewDocumentStore()

	uri := "file:///test/connector.yaml"
	store.Open(uri, "query: SELECT 1", 1)

	assert.True(t, store.Update(uri, "query: SELECT 2", 2))
	doc := store.Get(uri)
	assert.Equal(t, "query: SELECT 2", doc.Content)
	assert.Equal(t, 2, doc.Version)

	assert.False(t, store.Update(uri, "query: SELECT 0", 1), "stale version")
	assert.Equal(t, "query: SELECT 2", store.Get(uri).Content)

	assert.False(t, store.Update("file:///missing.yaml", "x", 1))
}

func TestDocumentStore_GetReturnsSnapshot(t *testing.T) {
	store := NewDocumentStore()
	store.Open("file:///a.yaml", "a: 1", 1)

	doc := store.Get("file:///a.yaml")
	doc.Content = "changed"
	assert.Equal(t, "a: 1", store.Get("file:///a.yaml").Content)
}

func TestDocumentStore_List(t *testing.T) {
	store := NewDocumentStore()

	store.Open("file:///a.yaml", "a: 1", 1)
	store.Open("file:///b.yaml", "b: 1", 1)
	store.Open("file:///c.yml", "c: 1", 1)

	assert.Len(t, store.List(), 3)
}

func TestIsYAML(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"file:///x/connector.yaml", true},
		{"file:///x/connector.YML", true},
		{"file:///x/model.sql", false},
		{"file:///x/yaml", false},
		{"untitled:Untitled-1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsYAML(tt.uri), tt.uri)
	}
}

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"file:///home/user/project/connector.yaml", "/home/user/project/connector.yaml"},
		{"file:///tmp/with%20space.yaml", "/tmp/with space.yaml"},
		{"/already/a/path.yaml", "/already/a/path.yaml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, URIToPath(tt.uri), tt.uri)
	}
}

func TestPathToURI(t *testing.T) {
	assert.Equal(t, "file:///home/user/connector.yaml", PathToURI("/home/user/connector.yaml"))
	assert.Equal(t, "file:///already", PathToURI("file:///already"))
}
