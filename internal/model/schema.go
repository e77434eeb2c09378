package model

import "slices"

// Schema names the roles that fields play in one export family.
type Schema struct {
	Name          string
	Fields        []string // expected fields, in display order
	Required      []string // header columns without which a document is rejected
	TimeField     string
	ScannedField  string
	DetectedField string
	CleanedField  string
	CategoryField string
	NoValue       string // category sentinel excluded from frequency tables
	LevelField    string
	IDField       string
}

// ScanSchema describes antivirus computer-scan exports.
var ScanSchema = Schema{
	Name:          "scan",
	Fields:        []string{"Time", "Scanned folders", "Scanned", "Detected", "Cleaned", "Status", "Threat"},
	TimeField:     "Time",
	ScannedField:  "Scanned",
	DetectedField: "Detected",
	CleanedField:  "Cleaned",
	CategoryField: "Threat",
	NoValue:       "No Threat",
}

// EventSchema describes Windows event-log exports.
var EventSchema = Schema{
	Name:          "event",
	Fields:        []string{"TimeCreated", "LevelDisplayName", "Id"},
	Required:      []string{"TimeCreated", "LevelDisplayName", "Id"},
	TimeField:     "TimeCreated",
	CategoryField: "Id",
	LevelField:    "LevelDisplayName",
	IDField:       "Id",
}

// SchemaByName returns the schema registered under name.
func SchemaByName(name string) (Schema, bool) {
	switch name {
	case ScanSchema.Name:
		return ScanSchema, true
	case EventSchema.Name:
		return EventSchema, true
	}
	return Schema{}, false
}

// DetectSchema picks the schema matching a header.
func DetectSchema(header []string) Schema {
	if slices.Contains(header, EventSchema.TimeField) {
		return EventSchema
	}
	return ScanSchema
}

// MissingColumns returns the required columns absent from header.
func (s Schema) MissingColumns(header []string) []string {
	var missing []string
	for _, col := range s.Required {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}
