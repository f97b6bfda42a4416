package cli

// SourceOptions selects where machine definitions come from. Exactly one
// of File, Dir or Demo is expected; commands default to Demo when the
// user names no source.
type SourceOptions struct {
	File    string // single definition file (.yaml, .json, .puml)
	Dir     string // Loam repository directory, one document per state
	Demo    bool   // built-in traffic-light machine
	Machine string // machine to pick when the source holds several
}

// StoreOptions selects the snapshot store backing durable sessions.
type StoreOptions struct {
	Kind          string // memory | redis | sqlite
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Source     SourceOptions
	SessionID  string
	Fresh      bool
	Store      StoreOptions
	Watch      bool
	Headless   bool
	JSON       bool
	Debug      bool
	Iterations int
}
