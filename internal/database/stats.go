package database

import (
	"github.com/mrlokans/library/internal/entities"
)

// CatalogStats holds the dashboard counters.
type CatalogStats struct {
	Books              int64
	Instances          int64
	InstancesAvailable int64
	Authors            int64
	Genres             int64
	BooksWithThe       int64
}

// Stats counts the catalog for the home page.
func (d *Database) Stats() (*CatalogStats, error) {
	var stats CatalogStats
	var err error

	if stats.Books, err = d.Books.Count(); err != nil {
		return nil, err
	}
	if stats.Instances, err = d.Instances.Count(); err != nil {
		return nil, err
	}
	if stats.InstancesAvailable, err = d.Instances.CountByStatus(entities.LoanStatusAvailable); err != nil {
		return nil, err
	}
	if stats.Authors, err = d.Authors.Count(); err != nil {
		return nil, err
	}
	if stats.Genres, err = d.Genres.Count(); err != nil {
		return nil, err
	}
	if stats.BooksWithThe, err = d.Books.CountTitleContains("the"); err != nil {
		return nil, err
	}
	return &stats, nil
}
