// Package html turns HTML pages into plain text. Script and style bodies
// are dropped, block elements become line breaks and entities are
// decoded; the <title> element supplies the document title.
package html
