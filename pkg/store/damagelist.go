package store

// RecordDamage appends a (victim, attacker) entry at height, used by
// fame attribution's sliding window. A repeated attack from the same
// attacker on the same victim refreshes the height rather than adding
// a second row (the PK is (victim_id, attacker_id)).
func (tx *Tx) RecordDamage(victimID, attackerID int64, height uint64) error {
	_, err := tx.sqlTx.Exec(`INSERT INTO damage_list (victim_id, attacker_id, height) VALUES (?,?,?)
		ON CONFLICT(victim_id, attacker_id) DO UPDATE SET height=excluded.height`,
		victimID, attackerID, height)
	return err
}

// AttackersOf returns the ids of every attacker with a damage-list
// entry against victimID, ordered ascending.
func (tx *Tx) AttackersOf(victimID int64) ([]int64, error) {
	rows, err := tx.sqlTx.Query(`SELECT attacker_id FROM damage_list WHERE victim_id=? ORDER BY attacker_id ASC`, victimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// ClearVictim removes every damage-list entry for victimID, called once
// fame has been attributed for its death.
func (tx *Tx) ClearVictim(victimID int64) error {
	_, err := tx.sqlTx.Exec(`DELETE FROM damage_list WHERE victim_id=?`, victimID)
	return err
}

// PruneDamageList deletes every entry older than the sliding window,
// i.e. height < currentHeight-window. Called at phase start per
// spec.md §4.9 ("garbage-collect damage-list entries older than the
// window at phase start").
func (tx *Tx) PruneDamageList(currentHeight, window uint64) error {
	if currentHeight < window {
		return nil
	}
	cutoff := currentHeight - window
	_, err := tx.sqlTx.Exec(`DELETE FROM damage_list WHERE height<?`, cutoff)
	return err
}
