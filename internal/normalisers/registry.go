package normalisers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/html"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
	"github.com/custodia-labs/docqa/internal/normalisers/pptx"
	"github.com/custodia-labs/docqa/internal/normalisers/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry binds each supported document kind to exactly one normaliser.
type Registry struct {
	byKind map[domain.DocumentKind]driven.Normaliser
}

// NewRegistry creates a registry from normalisers.
// Every supported kind must be covered and no kind may be registered twice.
func NewRegistry(normalisers ...driven.Normaliser) (*Registry, error) {
	r := &Registry{byKind: make(map[domain.DocumentKind]driven.Normaliser, len(normalisers))}
	for _, n := range normalisers {
		kind := n.Kind()
		if !kind.IsSupported() {
			return nil, fmt.Errorf("%w: normaliser for unsupported kind %q", domain.ErrInvalidInput, kind)
		}
		if _, dup := r.byKind[kind]; dup {
			return nil, fmt.Errorf("%w: duplicate normaliser for %s", domain.ErrInvalidInput, kind)
		}
		r.byKind[kind] = n
	}
	for _, kind := range domain.SupportedKinds() {
		if _, ok := r.byKind[kind]; !ok {
			return nil, fmt.Errorf("%w: no normaliser for %s", domain.ErrInvalidInput, kind)
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with the built-in normalisers.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		plaintext.New(),
		markdown.New(),
		pdf.New(),
		docx.New(),
		pptx.New(),
		html.New(),
		xlsx.New(),
	)
	if err != nil {
		// The built-in set covers every kind.
		panic(err)
	}
	return r
}

// Supports returns true if the path's kind has a normaliser.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byKind[domain.KindFromPath(path)]
	return ok
}

// Load reads and normalises one file. Every returned document carries the
// file name as its source and the original path.
func (r *Registry) Load(ctx context.Context, path string) ([]domain.Document, error) {
	kind := domain.KindFromPath(path)
	n, ok := r.byKind[kind]
	if !ok {
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	raw := &driven.RawFile{
		Path:    path,
		Name:    filepath.Base(path),
		Content: content,
	}

	docs, err := n.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for i := range docs {
		meta := domain.CopyMetadata(docs[i].Metadata)
		meta[domain.MetaSource] = raw.Name
		meta[domain.MetaFilePath] = path
		meta[domain.MetaKind] = string(kind)
		docs[i].Metadata = meta
		text.WriteString(docs[i].Content)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, domain.ErrEmptyDocument
	}

	return docs, nil
}
