package store

import "time"

// Classification is the persisted result of classifying one software license.
// License names are unique; reclassifying a name replaces its row.
type Classification struct {
	ID          uint   `gorm:"primaryKey"`
	LicenseName string `gorm:"size:255;uniqueIndex"`
	Category    string `gorm:"size:32;index"`
	Explanation string `gorm:"type:text"`
	Degraded    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
