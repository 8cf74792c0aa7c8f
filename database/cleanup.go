package database

import (
	"fmt"
	"log"
	"time"
)

// CleanupOldHistory deletes publications and exclusions recorded before
// the cutoff and returns how many rows were removed.
func (h *History) CleanupOldHistory(cutoff time.Time) (int64, error) {
	log.Println("Starting cleanup of old history...")

	var total int64
	for _, table := range []string{"published", "exclusions"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", table)
		stmt, err := h.db.Prepare(query)
		if err != nil {
			return total, fmt.Errorf("failed to prepare delete statement for %s: %w", table, err)
		}

		res, err := stmt.Exec(cutoff.Unix())
		stmt.Close()
		if err != nil {
			return total, fmt.Errorf("failed to execute delete statement for %s: %w", table, err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
		}
		total += rowsAffected
	}

	log.Printf("Finished cleanup of old history, %d rows removed.", total)
	return total, nil
}
