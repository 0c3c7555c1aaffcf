package output

import "io"

// Result can be written as text or JSON.
type Result interface {
	Text(w io.Writer) error
	JSON() any
}

// Output writes r in the formatter's format.
func (f *Formatter) Output(r Result) error {
	if f.IsJSON() {
		return f.JSON(r.JSON())
	}
	return r.Text(f.writer)
}

// OutputData writes jsonData in JSON mode and calls textFn otherwise.
func (f *Formatter) OutputData(jsonData any, textFn func(w io.Writer) error) error {
	if f.IsJSON() {
		return f.JSON(jsonData)
	}
	return textFn(f.writer)
}

// Success reports a command that has nothing else to say.
func (f *Formatter) Success(msg string) error {
	if f.IsJSON() {
		return f.JSON(SuccessResponse{Success: true, Message: msg})
	}
	PrintSuccessCheck(f.writer, msg)
	return nil
}
