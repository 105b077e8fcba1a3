package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

// WriteCSV menulis baris timeline sebagai CSV.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"At", "Actor", "Action", "Entity", "Entity ID", "Meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			encoded, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			meta = string(encoded)
		}
		if err := writer.Write([]string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
