package service

import (
	"time"

	"github.com/campusgate/outpass-api/internal/models"
)

// intervalsOverlap applies the conservative boundary rule: touching
// endpoints count as a conflict, so a new pass cannot start the instant an
// old one ends.
func intervalsOverlap(fromA, toA, fromB, toB time.Time) bool {
	return !fromB.After(toA) && !fromA.After(toB)
}

// findConflicting returns the first live outpass whose interval intersects
// the candidate interval, or nil. Callers pass the subject's live outpasses;
// terminal records never conflict.
func findConflicting(existing []models.Outpass, from, to time.Time) *models.Outpass {
	for i := range existing {
		if !existing[i].Status.Live() {
			continue
		}
		if intervalsOverlap(existing[i].FromDate, existing[i].ToDate, from, to) {
			return &existing[i]
		}
	}
	return nil
}
