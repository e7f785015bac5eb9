package store

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound reports a lookup for a license name with no stored result.
var ErrNotFound = errors.New("classification not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Classification{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveClassification inserts or replaces the result for a license name.
func (d *Database) SaveClassification(c *Classification) error {
	if c == nil {
		return errors.New("classification is nil")
	}
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "license_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "explanation", "degraded", "updated_at"}),
	}).Create(c).Error
}

// GetClassification returns the stored result for the exact license name.
func (d *Database) GetClassification(licenseName string) (*Classification, error) {
	var row Classification
	err := d.gorm.Where("license_name = ?", licenseName).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListClassifications returns every stored result ordered by license name.
func (d *Database) ListClassifications() ([]Classification, error) {
	var rows []Classification
	if err := d.gorm.Order("license_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteClassification removes and returns the result for a license name.
func (d *Database) DeleteClassification(licenseName string) (*Classification, error) {
	row, err := d.GetClassification(licenseName)
	if err != nil {
		return nil, err
	}
	if err := d.gorm.Delete(&Classification{}, row.ID).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// CountClassifications reports the number of stored results.
func (d *Database) CountClassifications() (int64, error) {
	var total int64
	if err := d.gorm.Model(&Classification{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CategoryCounts aggregates stored results per category.
func (d *Database) CategoryCounts() (map[string]int64, error) {
	type bucket struct {
		Category string
		Total    int64
	}
	var buckets []bucket
	err := d.gorm.Model(&Classification{}).
		Select("category, COUNT(*) AS total").
		Group("category").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Category] = b.Total
	}
	return counts, nil
}

// LicenseNames returns the stored license names ordered alphabetically.
func (d *Database) LicenseNames() ([]string, error) {
	var names []string
	err := d.gorm.Model(&Classification{}).
		Order("license_name ASC").
		Pluck("license_name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
