package model

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringList is a list of strings stored as a Postgres text[] column.
// Other dialects store the same array literal in a text column.
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return err
	}
	*l = StringList(arr)
	return nil
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	return pq.StringArray(l).Value()
}

// GormDBDataType picks the column type per dialect
func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
