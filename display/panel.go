package display

// Panel is the physical (or emulated) monochrome display. Rows are addressed
// in lines of the controller's font; Commit pushes every pending row update
// to the screen at once.
type Panel interface {
	// Size returns the viewport size in pixels.
	Size() (width, height int)
	// SetRow replaces the text shown in one row.
	SetRow(row int, text string)
	// Commit refreshes the whole panel.
	Commit() error
}
