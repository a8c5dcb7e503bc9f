//go:build libpostal

package postal

import (
	postal "github.com/openvenues/gopostal/parser"
)

// Available reports whether a libpostal parser is linked in
const Available = true

// Parse runs the libpostal address parser
func Parse(address string) []Component {
	parsed := postal.ParseAddress(address)
	out := make([]Component, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, Component{Label: p.Label, Value: p.Value})
	}
	return out
}
