package models

import "time"

// Supported source database types.
const (
	DBTypeMySQL  = "mysql"
	DBTypeMSSQL  = "mssql"
	DBTypePgSQL  = "pgsql"
	DBTypeSQLite = "sqlite"
)

// Connection statuses.
const (
	ConnStatusActive   = "active"
	ConnStatusInactive = "inactive"
	ConnStatusError    = "error"
)

// DatabaseConnection holds one external source's connection parameters.
// Credentials arrive already decrypted; decryption is owned by the web
// application, not the engine. Read-only here except for flipping Status
// to error after repeated connection failures.
type DatabaseConnection struct {
	ID        int64     `db:"id_database" json:"id_database"`
	UserID    int64     `db:"id_user"     json:"id_user"`
	Alias     string    `db:"alias"       json:"alias"`
	DBType    string    `db:"db_type"     json:"db_type"`
	Host      string    `db:"host"        json:"host"`
	Port      int       `db:"port"        json:"port"`
	DBName    string    `db:"db_name"     json:"db_name"`
	DBUser    string    `db:"db_user"     json:"db_user"`
	DBPass    string    `db:"db_password" json:"-"`
	Status    string    `db:"status"      json:"status"`
	CreatedAt time.Time `db:"created_at"  json:"created_at"`
}
