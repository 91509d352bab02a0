package constants

// Sync defaults.

const (
	SourceSchemaDefault             = "PUB"
	TargetSchemaDefault             = "analytics"
	StateSchemaDefault              = "analytics"
	StateTableName                  = "sync_state"
	TableSyncBatchSizeDefault       = 5000
	MaxCursorsDefault               = 2
	ConnectTimeoutSecondsDefault    = 30
	IgnoreFileDefault               = "ignored_tables.txt"
	LogFileDefault                  = "pgmirror.log"
	LogLevelDefault                 = "info"
	SystemTablePrefix               = "_"
	PostgresMaxBindParams           = 65535
	PostgresMaxVarcharLen           = 10485760
	PostgresMaxNumericPrecision     = 1000
	StatsCaptureFrequencySeconds    = 5
	TimeFormatDate                  = "2006-01-02"
	TimeFormatTime                  = "15:04:05.999999"
	TimeFormatTimestamp             = "2006-01-02T15:04:05.999999"
	TimeFormatTimestampTZ           = "2006-01-02T15:04:05.999999Z07:00"
	TimeFormatYearSeconds           = "20060102T150405" // used for human readable run summaries
	TimeFormatYearSecondsRegex      = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	SchemaPolicyText                = "text"
	SchemaPolicyTyped               = "typed"
	EnvVarPrefix                    = "PGMIRROR" // prefixed for environment variables in twelveFactorMode
	ServiceName                     = "pgmirror"
	ConfigDirName                   = ".pgmirror"
	ConfigFileName                  = "config.yaml"
	ConnectionTypeOdbc              = "odbc" // OpenEdge and other ODBC sources via a DSN
	ConnectionTypeOdbcOpenEdge      = "odbc+openedge"
	ConnectionTypeSqlServer         = "sqlserver"
	ConnectionTypeNetezza           = "netezza"
	ConnectionTypeMySql             = "mysql"
	ConnectionTypeSnowflake         = "snowflake"
	ConnectionTypeSqlite            = "sqlite3"
	ConnectionTypePostgres          = "postgres"
	DriverNameOdbc                  = "odbc"
	DriverNameNetezza               = "nzgo"
	StateMigrationVersionSyncState  = 1
	ProgressBarWidth                = 30
	ProgressLineRewriteMinPercent   = 1
	ProgressLogStepPercent          = 25
	IgnoreFileCommentPrefix         = "#"
	RunIdLogField                   = "run_id"
	TableLogField                   = "table"
	SavepointUpsert                 = "pgmirror_upsert"
	PostgresErrCodeInvalidColumnRef = "42P10" // no unique or exclusion constraint matching the ON CONFLICT specification
	PostgresErrCodeCardinality      = "21000" // ON CONFLICT DO UPDATE command cannot affect row a second time
	PostgresErrCodeInsufficientPriv = "42501"
)
