// Package html provides a Normaliser for HTML documents.
// Scripts, styles and noscript blocks are removed and the body is converted
// to markdown so headings, lists and links stay readable in chunks.
package html
