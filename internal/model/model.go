package model

import "time"

// Record is one duty assignment as loaded from a roster source, before any
// person resolution. Records are immutable once loaded.
type Record struct {
	// Source identifies where the record came from (config source ID or
	// standing duty title). Used for logging and stable ICS UIDs.
	Source string

	Title string

	Start time.Time
	End   time.Time

	// DutyType is the cleaned duty type ("Event", "6pm-10pm", ...). May be empty.
	DutyType string

	// AssignedTo is the raw free-text assignment field. It may name several
	// people separated by ',' or ';', or carry notes ("Andrew - On Leave").
	AssignedTo string

	// Complete is the raw "Duty Complete" column, passed through unchanged.
	Complete string
}

// Duty is a Record together with the people it resolves to.
type Duty struct {
	Record

	// People is the ordered, duplicate-free list of canonical names.
	People []string
}
