package source

import (
	"fmt"
	"strings"

	"github.com/mkrawiec/textsync/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// dialect captures the per-engine SQL differences: driver name, DSN shape,
// placeholder style and paging syntax. Dispatch is by db_type tag, not
// subtyping.
type dialect struct {
	name        string
	driver      string
	dsn         func(*models.DatabaseConnection) string
	placeholder func(n int) string
	pageQuery   func(table, idCol, textCol string, limit int) string
}

func defaultPort(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

var dialects = map[string]dialect{
	models.DBTypeMySQL: {
		name:   models.DBTypeMySQL,
		driver: "mysql",
		dsn: func(c *models.DatabaseConnection) string {
			return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
				c.DBUser, c.DBPass, c.Host, defaultPort(c.Port, 3306), c.DBName)
		},
		placeholder: func(int) string { return "?" },
		pageQuery: func(table, idCol, textCol string, limit int) string {
			return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s > ? ORDER BY %s ASC LIMIT %d",
				idCol, textCol, table, idCol, idCol, limit)
		},
	},
	models.DBTypeMSSQL: {
		name:   models.DBTypeMSSQL,
		driver: "sqlserver",
		dsn: func(c *models.DatabaseConnection) string {
			return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
				c.DBUser, c.DBPass, c.Host, defaultPort(c.Port, 1433), c.DBName)
		},
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		pageQuery: func(table, idCol, textCol string, limit int) string {
			return fmt.Sprintf("SELECT TOP %d %s, %s FROM %s WHERE %s > @p1 ORDER BY %s ASC",
				limit, idCol, textCol, table, idCol, idCol)
		},
	},
	models.DBTypePgSQL: {
		name:   models.DBTypePgSQL,
		driver: "pgx",
		dsn: func(c *models.DatabaseConnection) string {
			return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
				c.DBUser, c.DBPass, c.Host, defaultPort(c.Port, 5432), c.DBName)
		},
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		pageQuery: func(table, idCol, textCol string, limit int) string {
			return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s > $1 ORDER BY %s ASC LIMIT %d",
				idCol, textCol, table, idCol, idCol, limit)
		},
	},
	models.DBTypeSQLite: {
		name:   models.DBTypeSQLite,
		driver: "sqlite3",
		dsn: func(c *models.DatabaseConnection) string {
			// For sqlite sources db_name holds the database file path.
			return c.DBName
		},
		placeholder: func(int) string { return "?" },
		pageQuery: func(table, idCol, textCol string, limit int) string {
			return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s > ? ORDER BY %s ASC LIMIT %d",
				idCol, textCol, table, idCol, idCol, limit)
		},
	},
}

// keysQuery builds a "WHERE idCol IN (...)" select in this dialect's
// placeholder style.
func (d dialect) keysQuery(table, idCol, textCol string, n int) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY %s ASC",
		idCol, textCol, table, idCol, strings.Join(placeholders, ", "), idCol)
}
