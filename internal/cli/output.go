package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// print writes v as indented JSON or text as a line, per --format.
func (o *options) print(w io.Writer, v any, text string) error {
	if o.format == formatJSON {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
