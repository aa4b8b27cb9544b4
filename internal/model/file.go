package model

import "errors"

// ErrResultAlreadySet is returned when a file result is assigned twice in one run.
var ErrResultAlreadySet = errors.New("result location already set")

// File is the working unit of a batch: one input and whatever the batch
// produced for it.
type File struct {
	Name    string  `json:"name"`
	Source  string  `json:"source"`
	Preview string  `json:"preview,omitempty"`
	Text    *string `json:"text,omitempty"`
	Result  string  `json:"result,omitempty"`
}

// SetResult records the output location of the file.
// The location can be set only once per batch run.
func (f *File) SetResult(location string) error {
	if f.Result != "" {
		return ErrResultAlreadySet
	}

	f.Result = location

	return nil
}

// SetText records the text recognized in the file.
func (f *File) SetText(text string) {
	f.Text = &text
}
