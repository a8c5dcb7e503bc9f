package handlers

import (
	"fmt"
	"net/http"

	"github.com/property-insights/internal/debug"
	"github.com/property-insights/internal/export"
)

// ExportHandler streams the filtered dataset as a download
type ExportHandler struct {
	Source Source
}

// ExportData writes the properties passing the filters and optional viewport
// in ?format= (csv, json or geojson; csv by default)
func (h *ExportHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}

	var contentType string
	switch format {
	case export.FormatCSV:
		contentType = "text/csv"
	case export.FormatJSON:
		contentType = "application/json"
	case export.FormatGeoJSON:
		contentType = "application/geo+json"
	default:
		writeError(w, http.StatusBadRequest, "unsupported export format, use csv, json or geojson")
		return
	}

	snap, ok := snapshot(w, r, h.Source)
	if !ok {
		return
	}
	props, err := inViewport(snap, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="properties-%s.%s"`, snap.Result.RunID, format))

	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(w, props)
	case export.FormatJSON:
		err = export.WriteJSON(w, props)
	case export.FormatGeoJSON:
		err = export.WriteJSON(w, export.ToGeoJSON(props))
	}
	if err != nil {
		// headers are gone, all we can do is log
		debug.Warnf("export of run %s failed: %v", snap.Result.RunID, err)
	}
}
