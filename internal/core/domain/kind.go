package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// DocumentKind tags the format a file is loaded as.
// Each supported kind is bound to exactly one loader.
type DocumentKind string

// Available document kinds.
const (
	KindText     DocumentKind = "text"
	KindMarkdown DocumentKind = "markdown"
	KindPDF      DocumentKind = "pdf"
	KindDOCX     DocumentKind = "docx"
	KindPPTX     DocumentKind = "pptx"
	KindHTML     DocumentKind = "html"
	KindXLSX     DocumentKind = "xlsx"

	// KindUnsupported is selected for any extension without a loader.
	KindUnsupported DocumentKind = "unsupported"
)

var extensionKinds = map[string]DocumentKind{
	".txt":      KindText,
	".text":     KindText,
	".log":      KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".pptx":     KindPPTX,
	".html":     KindHTML,
	".htm":      KindHTML,
	".xlsx":     KindXLSX,
}

// KindFromPath selects the document kind from a file extension.
// Matching is case-insensitive. Legacy binary formats (.doc, .ppt)
// map to KindUnsupported.
func KindFromPath(path string) DocumentKind {
	ext := strings.ToLower(filepath.Ext(path))
	if kind, ok := extensionKinds[ext]; ok {
		return kind
	}
	return KindUnsupported
}

// IsSupported returns true if the kind has a loader.
func (k DocumentKind) IsSupported() bool {
	return k != KindUnsupported && k != ""
}

// String returns the string representation.
func (k DocumentKind) String() string {
	return string(k)
}

// Description returns a human-readable label.
func (k DocumentKind) Description() string {
	switch k {
	case KindText:
		return "Plain text"
	case KindMarkdown:
		return "Markdown"
	case KindPDF:
		return "PDF"
	case KindDOCX:
		return "Word (.docx)"
	case KindPPTX:
		return "PowerPoint (.pptx)"
	case KindHTML:
		return "HTML"
	case KindXLSX:
		return "Excel (.xlsx)"
	default:
		return unknownDescription
	}
}

// SupportedKinds returns every kind that has a loader.
func SupportedKinds() []DocumentKind {
	return []DocumentKind{KindText, KindMarkdown, KindPDF, KindDOCX, KindPPTX, KindHTML, KindXLSX}
}

// SupportedExtensions returns the sorted extensions mapped to a supported kind.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionKinds))
	for ext := range extensionKinds {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
