package cmd

import "github.com/alecthomas/kong"

// CLI is the engine's command tree. Global flags bind to the environment so
// a container or desktop shell can configure the engine without arguments.
type CLI struct {
	Config      string `help:"Config file (default: <data-dir>/config.yml, created on first run)." env:"INTERNWATCH_CONFIG" type:"path"`
	DataDir     string `help:"Data directory for the SQLite file, lock files and config." env:"INTERNWATCH_DATA_DIR" default:"data" type:"path"`
	DatabaseURL string `help:"Postgres DSN; switches the store to postgres." env:"DATABASE_URL"`
	RedisURL    string `help:"Redis URL; switches the run lock to redis." env:"REDIS_URL"`
	LogLevel    string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"INTERNWATCH_LOG_LEVEL"`
	LogFormat   string `help:"Log format." enum:"console,json" default:"console" env:"INTERNWATCH_LOG_FORMAT"`

	VersionFlag kong.VersionFlag `name:"version" help:"Print version."`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API and the scheduled pipelines."`
	Refresh RefreshCmd `cmd:"" help:"Run one opening-signal refresh and print the report."`
	Search  SearchCmd  `cmd:"" help:"Run one internship search pass and print the report."`
	Sweep   SweepCmd   `cmd:"" help:"Deactivate signals not seen within the freshness window."`
	Migrate MigrateCmd `cmd:"" help:"Apply store migrations."`
	Cfg     ConfigCmd  `cmd:"" name:"config" help:"Inspect configuration."`
	Key     KeyCmd     `cmd:"" help:"Manage the function key in the OS keychain."`
}

func NewCLI() *CLI {
	return &CLI{}
}
