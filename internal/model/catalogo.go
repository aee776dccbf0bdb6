package model

// RawRow is one untrusted catalog line as delivered by a row source.
// Every field is free text; nothing is validated until indexing.
type RawRow struct {
	Brand     string `json:"marca"`
	Reference string `json:"referencia"`
	Year      string `json:"anio"`
	Value     string `json:"valor"`
}
