package parser

import (
	"bytes"
	"errors"
)

// textDecoder handles pasted text: tab-delimited first, falling back to comma when
// tabs fail or produce a single column.
type textDecoder struct{}

func (textDecoder) CanParse(filename string) bool { return hasExt(filename, ".txt") }

func (textDecoder) Decode(name string, data []byte, _ Options) (*Grid, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	tab, tabErr := decodeDelimited(name, data, '\t')
	if tabErr == nil && len(tab.Header) > 1 {
		return tab, nil
	}
	comma, commaErr := decodeDelimited(name, data, ',')
	if commaErr == nil {
		return comma, nil
	}
	if tabErr == nil {
		return tab, nil
	}
	return nil, &ParseError{Source: name, Reason: "not tab- or comma-delimited", Err: errors.Join(tabErr, commaErr)}
}
