// Command inspect_schema prints the DDL GORM generates for every model, for
// comparison with the MariaDB init scripts under data/initdb.
package main

import (
	"fmt"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logrus.Fatal(err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		logrus.Fatal(err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var statements []string
		db.Raw("SELECT sql FROM sqlite_master WHERE tbl_name = ? AND sql IS NOT NULL ORDER BY type DESC, name", table).Scan(&statements)
		for _, stmt := range statements {
			fmt.Println(stmt + ";")
		}
	}
}
