package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2 // bad config, missing denial column, schema mismatch
	DBConnError     = 3
	IOError         = 4 // reading claims or writing tables, artifacts, output
	ModelError      = 5 // training or scoring failed
	NotImplemented  = 6
)
