// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"fmt"
	"html"
)

// Formatter renders a resolved reference inline.
type Formatter func(alt string, ref Resolved) string

// MarkdownDataURI keeps the reference as Markdown with a data URI target.
func MarkdownDataURI(alt string, ref Resolved) string {
	return fmt.Sprintf("![%s](data:%s;base64,%s)", alt, ref.MIME, ref.Payload)
}

// HTMLImage renders a centred <img> element, for front-ends that display
// the answer as HTML.
func HTMLImage(alt string, ref Resolved) string {
	return fmt.Sprintf(
		`<br><img src="data:%s;base64,%s" alt="%s" style="max-width: 50%%; display: block; margin-left: auto; margin-right: auto;"><br>`,
		ref.MIME, ref.Payload, html.EscapeString(alt),
	)
}
