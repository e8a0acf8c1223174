package models

import (
	"database/sql/driver"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a wrapper around gorm.io/datatypes.JSON to allow for custom data type mapping
type JSON struct {
	datatypes.JSON
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	if len(j.JSON) == 0 {
		return nil, nil
	}
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		j.JSON = nil
		return nil
	}
	return j.JSON.Scan(value)
}

// GormDBDataType ensures the correct data type is used for each database driver.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return jsonColumnType(db)
}

// StringList is a list of lowercase selections (cities, districts, property types)
// stored as a JSON array.
type StringList []string

// Value serializes the list through datatypes.JSONSlice
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return datatypes.NewJSONSlice([]string(l)).Value()
}

// Scan deserializes a JSON array column
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var slice datatypes.JSONSlice[string]
	if err := slice.Scan(value); err != nil {
		return err
	}
	*l = StringList(slice)
	return nil
}

// GormDBDataType ensures the correct data type is used for each database driver.
func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return jsonColumnType(db)
}

// Contains reports whether v is in the list, ignoring case and surrounding space
func (l StringList) Contains(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, item := range l {
		if strings.ToLower(item) == v {
			return true
		}
	}
	return false
}

// MSSQL has no json type, sqlite and mysql take JSON, postgres gets JSONB.
func jsonColumnType(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
