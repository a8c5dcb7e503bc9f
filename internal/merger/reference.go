package merger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/normalize"
)

var (
	// ErrEmptyReference means there is nothing to resolve against
	ErrEmptyReference = errors.New("empty demographics reference table")

	// ErrInvalidReference means a reference ZIP is malformed or duplicated
	ErrInvalidReference = errors.New("invalid demographics reference table")
)

// Reference is the canonical ZIP index over the demographics table
type Reference struct {
	byZip map[string]models.DemographicRecord
	zips  []string // sorted
}

// NewReference normalizes reference ZIPs to five digits and indexes them.
// Empty input, ZIPs with no digits and duplicates after normalization are fatal.
func NewReference(records []models.DemographicRecord) (*Reference, error) {
	if len(records) == 0 {
		return nil, ErrEmptyReference
	}

	ref := &Reference{byZip: make(map[string]models.DemographicRecord, len(records))}
	for i, rec := range records {
		zip := normalize.NormalizeZip(rec.ZipCode)
		if zip == "" {
			return nil, fmt.Errorf("%w: row %d has malformed zip %q", ErrInvalidReference, i, rec.ZipCode)
		}
		if _, dup := ref.byZip[zip]; dup {
			return nil, fmt.Errorf("%w: duplicate zip %s at row %d", ErrInvalidReference, zip, i)
		}
		rec.ZipCode = zip
		ref.byZip[zip] = rec
		ref.zips = append(ref.zips, zip)
	}
	sort.Strings(ref.zips)

	return ref, nil
}

// Zips returns the canonical ZIPs in ascending order
func (r *Reference) Zips() []string {
	return r.zips
}

// Lookup returns the demographics for a canonical ZIP
func (r *Reference) Lookup(zip string) (models.DemographicRecord, bool) {
	rec, ok := r.byZip[zip]
	return rec, ok
}

// Records returns the normalized reference rows ordered by ZIP
func (r *Reference) Records() []models.DemographicRecord {
	out := make([]models.DemographicRecord, 0, len(r.zips))
	for _, z := range r.zips {
		out = append(out, r.byZip[z])
	}
	return out
}

// Len is the number of canonical ZIPs
func (r *Reference) Len() int {
	return len(r.zips)
}
