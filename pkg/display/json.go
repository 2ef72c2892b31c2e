package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
)

// JSON pretty-prints v to stdout as syntax highlighted JSON.
func JSON(v interface{}) error {
	return FprintJSON(os.Stdout, v)
}

// FprintJSON writes v to w as indented JSON with terminal syntax
// highlighting. Highlighting failures fall back to plain JSON.
func FprintJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json output: %w", err)
	}
	source := string(data) + "\n"
	if err := quick.Highlight(w, source, "json", "terminal256", "monokai"); err != nil {
		_, werr := io.WriteString(w, source)
		return werr
	}
	return nil
}
