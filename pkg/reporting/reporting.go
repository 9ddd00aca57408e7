// Package reporting maintains a non-consensus leaderboard read-model:
// per-account kill/fame totals and per-faction building counts,
// rebuilt from the committed entity store after every block. Nothing
// here participates in state transition or affects determinism — a
// node could delete this database and rebuild it from a state replay
// without any consensus impact.
package reporting

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chainrealm/pkg/store"
)

// AccountStanding is one row of the leaderboard: an account's running
// kill/fame tally as of the last block Refresh saw.
type AccountStanding struct {
	Name       string `gorm:"column:name;primaryKey;size:190;not null"`
	Faction    string `gorm:"column:faction;not null;index:idx_standing_faction"`
	Kills      int64  `gorm:"column:kills;not null;default:0"`
	Fame       int64  `gorm:"column:fame;not null;default:0;index:idx_standing_fame"`
	LastHeight uint64 `gorm:"column:last_height;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (AccountStanding) TableName() string { return "account_standings" }

// FactionBuildingCount is a snapshot of how many buildings each
// faction controls as of the last block Refresh saw.
type FactionBuildingCount struct {
	Faction    string `gorm:"column:faction;primaryKey;size:190;not null"`
	Count      int64  `gorm:"column:count;not null;default:0"`
	LastHeight uint64 `gorm:"column:last_height;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (FactionBuildingCount) TableName() string { return "faction_building_counts" }

// Store opens (and migrates) the reporting database at path.
type Store struct {
	db *gorm.DB
}

// Open establishes the reporting SQLite connection and migrates its
// schema, mirroring gravity's OpenSQLite (single connection, AutoMigrate,
// then a ready logger line).
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("reporting: database path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("reporting: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("reporting: unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&AccountStanding{}, &FactionBuildingCount{}); err != nil {
		return nil, fmt.Errorf("reporting: migrate: %w", err)
	}
	if logger != nil {
		logger.Info("reporting database initialized", zap.String("path", path))
	}
	return &Store{db: db}, nil
}

// Refresh recomputes every leaderboard row from the entity store's
// state as of height, replacing what was there before. It runs in its
// own GORM transaction against the reporting database, entirely
// separate from the consensus store's *sql.Tx.
func (s *Store) Refresh(tx *store.Tx, height uint64) error {
	accounts, err := tx.AllAccountStandings()
	if err != nil {
		return fmt.Errorf("reporting: load account standings: %w", err)
	}
	buildingCounts, err := tx.BuildingCountsByFaction()
	if err != nil {
		return fmt.Errorf("reporting: load building counts: %w", err)
	}

	return s.db.Transaction(func(gtx *gorm.DB) error {
		if err := gtx.Where("1 = 1").Delete(&AccountStanding{}).Error; err != nil {
			return err
		}
		for _, a := range accounts {
			row := AccountStanding{Name: a.Name, Faction: a.Faction, Kills: a.Kills, Fame: a.Fame, LastHeight: height}
			if err := gtx.Create(&row).Error; err != nil {
				return err
			}
		}
		if err := gtx.Where("1 = 1").Delete(&FactionBuildingCount{}).Error; err != nil {
			return err
		}
		for faction, count := range buildingCounts {
			row := FactionBuildingCount{Faction: faction, Count: count, LastHeight: height}
			if err := gtx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TopByFame returns the limit highest-fame accounts, ties broken by
// name for a stable page order.
func (s *Store) TopByFame(limit int) ([]AccountStanding, error) {
	var rows []AccountStanding
	err := s.db.Order("fame DESC, name ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// BuildingCounts returns every faction's current building count.
func (s *Store) BuildingCounts() ([]FactionBuildingCount, error) {
	var rows []FactionBuildingCount
	err := s.db.Order("faction ASC").Find(&rows).Error
	return rows, err
}
