// Package database provides the data access layer for the catalog.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, permission seeding
//	├── stats.go         # Dashboard counts
//	├── authors/         # Author CRUD, clears book references on delete
//	├── books/           # Book CRUD, genre links, restricted delete
//	├── genres/          # Genre CRUD
//	├── languages/       # Language CRUD, clears book references on delete
//	├── instances/       # Book copies, loan listings, due-back updates
//	├── users/           # User lookups and deletion
//	└── audit/           # Audit event persistence
//
// # Using Sub-packages
//
// NewDatabase wires every repository on the shared *gorm.DB:
//
//	db, err := database.NewDatabase("./library.db", false)
//	book, err := db.Books.GetByID(42)
//	loans, total, err := db.Instances.ListOnLoan(10, 0)
//
// Sub-packages report missing rows with gorm.ErrRecordNotFound (possibly
// wrapped); callers test with errors.Is.
package database
