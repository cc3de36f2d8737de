package repository

// Open выбирает реализацию хранилища: PostgreSQL при заданном databaseURI,
// SQLite при заданном sqlitePath, иначе хранилище в памяти.
func Open(databaseURI, sqlitePath string) (Store, error) {
	switch {
	case databaseURI != "":
		r, err := NewPostgresRepository(databaseURI)
		if err != nil {
			return nil, err
		}
		return r, nil
	case sqlitePath != "":
		r, err := NewSQLiteRepository(sqlitePath)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return NewMemoryRepository(), nil
	}
}
