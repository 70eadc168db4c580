package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Well-known metadata keys shared by loaders, the indexer and vector stores.
const (
	// MetaSource is the file name a chunk was loaded from.
	MetaSource = "source"

	// MetaFilePath is the path the file was loaded from.
	MetaFilePath = "file_path"

	// MetaChunkIndex is the batch-wide index assigned at indexing time.
	MetaChunkIndex = "chunk_index"

	// MetaPage is the 1-based page number for paginated formats.
	MetaPage = "page"

	// MetaKind is the document kind tag.
	MetaKind = "kind"
)

// UnknownSource labels chunks whose metadata carries no source.
const UnknownSource = "Unknown"

// Document is the text extracted from a loaded file.
// Paginated formats may produce one Document per page.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the path the document was loaded from.
	URI string

	// Title is the human-readable title.
	Title string

	// Kind is the format the document was loaded as.
	Kind DocumentKind

	// Content is the full extracted text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	// Loaders always set MetaSource and MetaFilePath.
	Metadata map[string]any

	// CreatedAt is when the document was loaded.
	CreatedAt time.Time
}

// Source returns the source file name recorded in metadata.
func (d *Document) Source() string {
	return sourceOf(d.Metadata)
}

// Chunk is a bounded substring of a Document's content.
// Chunks are never mutated after the chunker produces them.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Index is the chunk index unique within one indexing batch,
	// assigned in output order starting at 0.
	Index int

	// Metadata is inherited from the Document.
	Metadata map[string]any
}

// Source returns the source file name recorded in metadata.
func (c *Chunk) Source() string {
	return sourceOf(c.Metadata)
}

func sourceOf(meta map[string]any) string {
	if meta != nil {
		if s, ok := meta[MetaSource].(string); ok && s != "" {
			return s
		}
	}
	return UnknownSource
}

// CopyMetadata returns a shallow copy of a metadata map.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// TitleFromPath derives a readable title from a file name.
// The extension is dropped and underscores and dashes become spaces.
func TitleFromPath(uri string) string {
	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
