package styles

const (
	CheckIcon   string = "✓"
	ErrorIcon   string = "✗"
	WarningIcon string = "⚠"
	InfoIcon    string = "ℹ"
	LoadingIcon string = "⟳"

	SortAscIcon  string = "▲"
	SortDescIcon string = "▼"
	Ellipsis     string = "…"
	Cursor       string = "›"
)
