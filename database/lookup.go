package database

import (
	"context"

	"gorm.io/gorm"
)

// Lookup tables are append-only: names resolve to generated integer keys so
// file rows never repeat strings. They are written even in dry-run mode; the
// rows carry no user data and the IDs are needed to build diffable file
// entities.

func (d *Database) GetOrCreateCountry(ctx context.Context, name string) (int64, error) {
	var rec Country
	err := d.read(ctx, func(tx *gorm.DB) error {
		return tx.Where(Country{Name: name}).FirstOrCreate(&rec).Error
	})
	return rec.ID, err
}

func (d *Database) GetOrCreateCity(ctx context.Context, name string) (int64, error) {
	var rec City
	err := d.read(ctx, func(tx *gorm.DB) error {
		return tx.Where(City{Name: name}).FirstOrCreate(&rec).Error
	})
	return rec.ID, err
}
