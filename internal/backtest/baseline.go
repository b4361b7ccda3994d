package backtest

import "github.com/yourusername/f1-winner/internal/models"

// PoleBaseline is the share of events won by the driver starting from the
// best grid slot. Events without any known grid position are ignored; nil
// when no event qualifies.
func PoleBaseline(rows []*models.TrainingRow) *float64 {
	pole := make(map[models.EventKey]*models.TrainingRow)
	for _, r := range rows {
		if r.GridPosition == nil || *r.GridPosition <= 0 {
			continue
		}
		cur, ok := pole[r.EventKey()]
		if !ok || *r.GridPosition < *cur.GridPosition ||
			(*r.GridPosition == *cur.GridPosition && r.DriverID < cur.DriverID) {
			pole[r.EventKey()] = r
		}
	}
	if len(pole) == 0 {
		return nil
	}
	won := 0
	for _, r := range pole {
		if r.Won {
			won++
		}
	}
	v := float64(won) / float64(len(pole))
	return &v
}
