package cli

// Default values for CLI output and bookkeeping.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2

	// AttributesTable is the index table holding item attributes.
	AttributesTable = "attributes"

	// HooksDirName is the directory next to the config file holding hook scripts.
	HooksDirName = "hooks"
	// HookScriptExt is the file extension of generated hook scripts.
	HookScriptExt = ".tengo"
	// attrSeparator joins a secret path and an attribute name into an index key.
	attrSeparator = "#"
)
