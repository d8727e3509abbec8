// Package edi is the entry point for reading ANSI X12 835 remittance
// advice as a claim source.
package edi

import (
	"errors"
	"io"

	"github.com/gyeh/claimrisk/internal/claims"
)

// ErrNotImplemented is returned by every parser in this package.
var ErrNotImplemented = errors.New("edi 835 parsing is not implemented")

// Parse835 will turn an 835 remittance file into a claim table with the same
// columns the CSV loader produces. It currently fails unconditionally.
func Parse835(r io.Reader) (*claims.Table, error) {
	return nil, ErrNotImplemented
}
