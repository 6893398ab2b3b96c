package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_KeyMapping(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		blobName string
		want     string
	}{
		{"no prefix", "", "catalog.bow", "catalog.bow"},
		{"prefix without slash", "catalogs", "catalog.bow", "catalogs/catalog.bow"},
		{"prefix with slash", "catalogs/", "catalog.bow", "catalogs/catalog.bow"},
		{"nested name", "catalogs/", "2026/01/catalog.bow", "catalogs/2026/01/catalog.bow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(nil, "bucket", tt.prefix)
			assert.Equal(t, tt.want, store.key(tt.blobName))
		})
	}
}
