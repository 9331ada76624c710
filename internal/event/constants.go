package event

// EventSchemaVersion is the current version of event payload schemas.
const EventSchemaVersion = "1.0"
