package config

const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./library.db"

	// DefaultPageSize is the number of rows per page on list views
	DefaultPageSize = 10
)
