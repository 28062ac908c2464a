package styles

// NewDarkTheme is the default theme for dark terminals.
func NewDarkTheme() *Theme {
	return &Theme{
		Name:   "dark",
		IsDark: true,

		Primary:   ParseHex("#22c55e"), // Queue green
		Secondary: ParseHex("#38bdf8"), // Sky
		Accent:    ParseHex("#facc15"), // Amber

		BgBase:      ParseHex("#111827"),
		BgSubtle:    ParseHex("#1f2937"),
		BgHighlight: ParseHex("#374151"),

		FgBase:     ParseHex("#f3f4f6"),
		FgMuted:    ParseHex("#9ca3af"),
		FgSubtle:   ParseHex("#6b7280"),
		FgInverted: ParseHex("#111827"),

		Border:      ParseHex("#4b5563"),
		BorderFocus: ParseHex("#22c55e"),

		Success: ParseHex("#22c55e"),
		Error:   ParseHex("#ef4444"),
		Warning: ParseHex("#f59e0b"),
		Info:    ParseHex("#3b82f6"),
	}
}

// NewLightTheme suits light terminal backgrounds.
func NewLightTheme() *Theme {
	return &Theme{
		Name:   "light",
		IsDark: false,

		Primary:   ParseHex("#15803d"),
		Secondary: ParseHex("#0369a1"),
		Accent:    ParseHex("#b45309"),

		BgBase:      ParseHex("#ffffff"),
		BgSubtle:    ParseHex("#f3f4f6"),
		BgHighlight: ParseHex("#e5e7eb"),

		FgBase:     ParseHex("#111827"),
		FgMuted:    ParseHex("#4b5563"),
		FgSubtle:   ParseHex("#9ca3af"),
		FgInverted: ParseHex("#ffffff"),

		Border:      ParseHex("#d1d5db"),
		BorderFocus: ParseHex("#15803d"),

		Success: ParseHex("#15803d"),
		Error:   ParseHex("#dc2626"),
		Warning: ParseHex("#d97706"),
		Info:    ParseHex("#2563eb"),
	}
}
