package domain

//CommandOpts holds command line options to override default config
type CommandOpts struct {

	//BackupDir is the directory scanned for today's backup file (the single positional argument)
	BackupDir string

	//ConfigPath optionally points to a YAML file overriding the built-in defaults
	ConfigPath string

	//UseDebugLogger should be set true when debug-level logging is needed
	UseDebugLogger bool

	//Dryrun should be set true to select the file and plan the upload without any AWS calls
	Dryrun bool
}
