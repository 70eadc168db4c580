package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestKind(t *testing.T) {
	assert.Equal(t, domain.KindPDF, New().Kind())
}

func TestNormalise_NilFile(t *testing.T) {
	docs, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}

func TestNormalise_NotAPDF(t *testing.T) {
	raw := &driven.RawFile{
		Path:    "/docs/report.pdf",
		Name:    "report.pdf",
		Content: []byte("this is plain text pretending to be a pdf"),
	}

	docs, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}

func TestNormalise_Empty(t *testing.T) {
	raw := &driven.RawFile{Path: "empty.pdf", Name: "empty.pdf"}

	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// buildPDF lays out objects 1..n with a matching xref table.
// Object 1 must be the catalog.
func buildPDF(objects ...string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	start := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, start)
	return b.Bytes()
}

// onePagePDF builds a document whose single page shows text, with pages
// as the /Pages node (object 2). The page is object 3.
func onePagePDF(pages, text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		pages,
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	)
}

// normaliseWithin fails the test instead of hanging when Normalise never returns.
func normaliseWithin(t *testing.T, content []byte) ([]domain.Document, error) {
	t.Helper()
	type result struct {
		docs []domain.Document
		err  error
	}
	done := make(chan result, 1)
	go func() {
		docs, err := New().Normalise(context.Background(), &driven.RawFile{
			Path:    "/docs/report.pdf",
			Name:    "report.pdf",
			Content: content,
		})
		done <- result{docs, err}
	}()

	select {
	case r := <-done:
		return r.docs, r.err
	case <-time.After(5 * time.Second):
		t.Fatal("Normalise did not return")
		return nil, nil
	}
}

func TestNormalise_SinglePage(t *testing.T) {
	docs, err := normaliseWithin(t, onePagePDF("<< /Type /Pages /Kids [3 0 R] /Count 1 >>", "Hello PDF"))

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Hello PDF")
	assert.Equal(t, 1, docs[0].Metadata[domain.MetaPage])
	assert.Equal(t, 1, docs[0].Metadata["total_pages"])
	assert.Equal(t, domain.KindPDF, docs[0].Kind)
}

func TestNormalise_CountLargerThanLeaves(t *testing.T) {
	docs, err := normaliseWithin(t, onePagePDF("<< /Type /Pages /Kids [3 0 R] /Count 3 >>", "Only page"))

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].Metadata["total_pages"])
}

func TestNormalise_MalformedPageTree(t *testing.T) {
	tests := []struct {
		name  string
		pages string
	}{
		{name: "kids is not an array", pages: "<< /Type /Pages /Kids 7 /Count 1 >>"},
		{name: "kids missing", pages: "<< /Type /Pages /Count 1 >>"},
		{name: "kid points to missing object", pages: "<< /Type /Pages /Kids [9 0 R] /Count 1 >>"},
		{name: "kid points to itself", pages: "<< /Type /Pages /Kids [2 0 R] /Count 1 >>"},
		{name: "root is not a pages node", pages: "<< /Type /Catalog /Kids [3 0 R] /Count 1 >>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := normaliseWithin(t, onePagePDF(tt.pages, "unreachable"))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, docs)
		})
	}
}

func TestNormalise_NestedCycle(t *testing.T) {
	content := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Pages /Parent 2 0 R /Kids [2 0 R] /Count 1 >>",
	)

	docs, err := normaliseWithin(t, content)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}
