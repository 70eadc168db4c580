// Package normalisers provides implementations of the Normaliser interface
// for each supported document kind, and the Registry that dispatches a file
// to the normaliser bound to its kind.
package normalisers
