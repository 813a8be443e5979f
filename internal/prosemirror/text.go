// Package prosemirror extracts plain text from the ProseMirror XML
// serialization used by the document engine for prose content. Parsing and
// rendering of the full node schema live outside this server; tools only
// need the readable text.
package prosemirror

import (
	"encoding/xml"
	"io"
	"strings"
)

// blockElements end a line of extracted text.
var blockElements = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"blockquote": true,
	"list-item":  true,
	"listItem":   true,
	"code-block": true,
	"codeBlock":  true,
}

// ExtractText returns the concatenated character data of doc, with one
// newline after each block-level element and surrounding whitespace
// trimmed. Malformed XML yields an error; an empty document yields "".
func ExtractText(doc string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return "", nil
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if blockElements[t.Name.Local] {
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
