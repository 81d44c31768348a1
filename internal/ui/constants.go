package ui

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
	IconStop     = "■"
	IconDone     = "✓"
	IconError    = "❌"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	ProgressLabelFormat = "%d%%"
)

// Layout sizing
const (
	WindowMinWidth    float32 = 640
	WindowMinHeight   float32 = 480
	StateLabelWidth   float32 = 130
	PercentLabelWidth float32 = 48
	LogSplitOffset            = 0.35
)
