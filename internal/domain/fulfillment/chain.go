package fulfillment

import (
	"fmt"
	"sort"
)

// Each pair's fill history forms a chain where the record with no successor
// is the current one. Because identities are monotonic within a pair, the
// current record is simply the one with the maximum identity. The model only
// holds if records are never deleted or renumbered out of band, so the
// resolver checks identities instead of silently picking a winner.

// ErrIdentityConflict reports two fill records sharing one identity within a
// pair, which breaks the append-only chain assumption.
var ErrIdentityConflict = fmt.Errorf("fill records share an identity within a pair")

// CurrentRecords reduces a full fill history to the current record of each
// patient/medication pair. Pairs with a single record are trivially current;
// pairs with no records contribute nothing. The result is ordered by record
// identity ascending.
func CurrentRecords(records []FillRecord) ([]FillRecord, error) {
	latest := make(map[PairKey]FillRecord, len(records))
	for _, rec := range records {
		cur, ok := latest[rec.Pair()]
		if !ok {
			latest[rec.Pair()] = rec
			continue
		}
		if rec.ID == cur.ID {
			return nil, fmt.Errorf("%w: id %d for patient %d medication %d",
				ErrIdentityConflict, rec.ID, rec.PatientID, rec.MedicationID)
		}
		if rec.ID > cur.ID {
			latest[rec.Pair()] = rec
		}
	}

	out := make([]FillRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CurrentViews is CurrentRecords over joined display rows.
func CurrentViews(views []FillView) ([]FillView, error) {
	latest := make(map[PairKey]FillView, len(views))
	for _, v := range views {
		cur, ok := latest[v.Pair()]
		if !ok {
			latest[v.Pair()] = v
			continue
		}
		if v.ID == cur.ID {
			return nil, fmt.Errorf("%w: id %d for patient %d medication %d",
				ErrIdentityConflict, v.ID, v.PatientID, v.MedicationID)
		}
		if v.ID > cur.ID {
			latest[v.Pair()] = v
		}
	}

	out := make([]FillView, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CurrentForPair resolves the current record of a single pair, or false when
// the pair has no history.
func CurrentForPair(records []FillRecord) (FillRecord, bool, error) {
	current, err := CurrentRecords(records)
	if err != nil {
		return FillRecord{}, false, err
	}
	if len(current) == 0 {
		return FillRecord{}, false, nil
	}
	if len(current) > 1 {
		return FillRecord{}, false, fmt.Errorf("records span %d pairs, expected one", len(current))
	}
	return current[0], true, nil
}
