package sqlstore

import "github.com/jmoiron/sqlx"

// dialect holds the per-database pieces of the usage queries.
type dialect struct {
	// driver is the database/sql driver name.
	driver string
	// day renders a.request_date as YYYY-MM-DD.
	day string
	// dateFilter is the expression compared against the range bounds.
	dateFilter string
}

var (
	mysqlDialect = dialect{
		driver:     "mysql",
		day:        "DATE_FORMAT(a.request_date, '%Y-%m-%d')",
		dateFilter: "a.request_date",
	}
	postgresDialect = dialect{
		driver:     "pgx",
		day:        "to_char(a.request_date, 'YYYY-MM-DD')",
		dateFilter: "a.request_date",
	}
	// request_date is TEXT in the SQLite schema
	sqliteDialect = dialect{
		driver:     "sqlite3",
		day:        "date(a.request_date)",
		dateFilter: "date(a.request_date)",
	}
)

// rebind converts ? placeholders to the driver's bind style.
func (d dialect) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.driver), query)
}
