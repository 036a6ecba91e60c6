package sqlutil

import "database/sql"

// FromSqlInt32 converts sql.NullInt32 to a Go int pointer
func FromSqlInt32(val sql.NullInt32) *int {
	if !val.Valid {
		return nil
	}
	i := int(val.Int32)
	return &i
}
