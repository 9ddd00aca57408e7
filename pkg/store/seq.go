package store

import "fmt"

// NewID allocates the next monotonic id for the named entity kind
// (e.g. "characters", "buildings", "ongoing_ops"), reading and
// incrementing the seq row inside this block's transaction so ids
// remain deterministic given the same move order (spec.md §3, "seq").
func (tx *Tx) NewID(kind string) (int64, error) {
	var next int64
	err := tx.sqlTx.QueryRow(`SELECT next FROM seq WHERE name=?`, kind).Scan(&next)
	if err != nil {
		next = 1
		if _, err := tx.sqlTx.Exec(`INSERT INTO seq(name, next) VALUES (?, ?)`, kind, next+1); err != nil {
			return 0, fmt.Errorf("store: init seq %s: %w", kind, err)
		}
		return next, nil
	}
	if _, err := tx.sqlTx.Exec(`UPDATE seq SET next=? WHERE name=?`, next+1, kind); err != nil {
		return 0, fmt.Errorf("store: advance seq %s: %w", kind, err)
	}
	return next, nil
}
