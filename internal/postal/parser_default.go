//go:build !libpostal

package postal

// Available reports whether a libpostal parser is linked in
const Available = false

// Parse returns nothing without libpostal
func Parse(address string) []Component {
	return nil
}
