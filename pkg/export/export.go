// Package export writes archived incidents in interchange formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/emsdispatch/core/archive"
)

var csvHeader = []string{
	"incident_id", "kind", "severity", "location", "state",
	"ambulance", "hospital", "submitted_at", "closed_at", "response_seconds",
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, recs []archive.Record) error {
	if recs == nil {
		recs = []archive.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per record. Proposal lists are omitted.
func WriteCSV(w io.Writer, recs []archive.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			strconv.FormatUint(r.IncidentID, 10),
			r.Kind.String(),
			r.Severity.String(),
			string(r.Location),
			r.State.String(),
			r.Ambulance,
			r.Hospital,
			r.SubmittedAt.Format(time.RFC3339),
			r.ClosedAt.Format(time.RFC3339),
			strconv.FormatFloat(r.ResponseSeconds, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
