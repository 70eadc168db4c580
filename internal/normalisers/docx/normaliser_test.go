package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// createTestDOCX creates a minimal DOCX file in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, _ = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, _ = doc.Write([]byte(documentXML))
	}
	if coreXML != "" {
		core, err := w.Create("docProps/core.xml")
		require.NoError(t, err)
		_, _ = core.Write([]byte(coreXML))
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const twoParagraphs = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestKind(t *testing.T) {
	assert.Equal(t, domain.KindDOCX, New().Kind())
}

func TestNormalise_Success(t *testing.T) {
	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Test Document</dc:title>
</cp:coreProperties>`

	raw := &driven.RawFile{
		Path:    "/path/to/document.docx",
		Name:    "document.docx",
		Content: createTestDOCX(t, twoParagraphs, coreXML),
	}

	docs, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, raw.Path, doc.URI)
	assert.Equal(t, "Test Document", doc.Title)
	assert.Equal(t, "Hello World\nSecond paragraph", doc.Content)
	assert.Equal(t, "docx", doc.Metadata["format"])
	assert.Equal(t, 2, doc.Metadata["paragraphs"])
}

func TestNormalise_TableCellsInOrder(t *testing.T) {
	docXML := `<w:document xmlns:w="w"><w:body>
<w:p><w:r><w:t>Before</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Role</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:p><w:r><w:t>After</w:t></w:r></w:p>
</w:body></w:document>`
	raw := &driven.RawFile{Path: "t.docx", Content: createTestDOCX(t, docXML, "")}

	docs, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Before\nName\nRole\nAfter", docs[0].Content)
}

func TestNormalise_TitleFallbackToFilename(t *testing.T) {
	raw := &driven.RawFile{Path: "/docs/project_plan-v2.docx", Content: createTestDOCX(t, twoParagraphs, "")}

	docs, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "project plan v2", docs[0].Title)
}

func TestNormalise_Errors(t *testing.T) {
	t.Run("nil file", func(t *testing.T) {
		_, err := New().Normalise(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("not a zip", func(t *testing.T) {
		raw := &driven.RawFile{Path: "bad.docx", Content: []byte("not a zip file")}
		_, err := New().Normalise(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing document part", func(t *testing.T) {
		raw := &driven.RawFile{Path: "empty.docx", Content: createTestDOCX(t, "", "")}
		_, err := New().Normalise(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
