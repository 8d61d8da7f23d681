package display

// LiveRenderer paints the transient status frame and erases it again between
// repaints. Draw replaces whatever the previous Draw left on screen; Clear
// removes the frame entirely; Finalize stops rendering without emitting an
// empty frame.
type LiveRenderer interface {
	Draw(frame string)
	Clear()
	Finalize()
}

// nopRenderer discards frames. Used when live rendering is disabled.
type nopRenderer struct{}

func (nopRenderer) Draw(string) {}
func (nopRenderer) Clear()      {}
func (nopRenderer) Finalize()   {}
