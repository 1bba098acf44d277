package entities

// Models lists every table managed by AutoMigrate, in dependency order.
func Models() []any {
	return []any{
		&Permission{},
		&User{},
		&Author{},
		&Genre{},
		&Language{},
		&Book{},
		&BookInstance{},
		&AuditEvent{},
	}
}
