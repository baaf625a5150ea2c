package features

import "strconv"

// Group is a categorical field expanded into one boolean column per value.
type Group struct {
	Column string   // column prefix, also the raw column name in batch files
	Values []string // canonical values, in model column order
}

// ColumnFor returns the encoded column name for a value of the group.
func (g Group) ColumnFor(value string) string {
	return g.Column + "_" + value
}

// Columns returns the encoded column names of the group.
func (g Group) Columns() []string {
	cols := make([]string, len(g.Values))
	for i, v := range g.Values {
		cols[i] = g.ColumnFor(v)
	}
	return cols
}

// Contains reports whether value is one of the group's canonical values.
func (g Group) Contains(value string) bool {
	for _, v := range g.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Groups lists every boolean-expanded categorical field.
var Groups = []Group{
	{Column: ColExtracurricular, Values: []string{No, Yes}},
	{Column: ColInternetAccess, Values: []string{No, Yes}},
	{Column: ColSchoolType, Values: []string{Private, Public}},
	{Column: ColPeerInfluence, Values: []string{Negative, Neutral, Positive}},
	{Column: ColLearningDisabilities, Values: []string{No, Yes}},
	{Column: ColGender, Values: []string{Female, Male}},
}

var educationLevels = map[string]int{
	HighSchool:   1,
	College:      2,
	Postgraduate: 3,
}

// educationLabels covers every label a batch file may carry for parental education.
var educationLabels = map[string]int{
	HighSchool:     1,
	College:        2,
	Postgraduate:   3,
	"SMA":          1,
	"Kuliah":       2,
	"Pascasarjana": 3,
}

// Encoding is the categorical part of a feature row.
type Encoding struct {
	EducationLevel int
	Flags          map[string]bool
}

// Encode validates every categorical field of r and expands it. Nothing is encoded
// unless all fields are valid.
func Encode(r StudentRecord) (Encoding, error) {
	level, ok := educationLevels[r.ParentalEducationLevel]
	if !ok {
		return Encoding{}, &ValidationError{
			Kind:  KindInvalidCategory,
			Field: ColParentalEducationLevel,
			Value: r.ParentalEducationLevel,
		}
	}
	for _, g := range Groups {
		if v := r.category(g.Column); !g.Contains(v) {
			return Encoding{}, &ValidationError{Kind: KindInvalidCategory, Field: g.Column, Value: v}
		}
	}

	flags := make(map[string]bool, len(EncodedColumns()))
	for _, g := range Groups {
		v := r.category(g.Column)
		for _, c := range g.Values {
			flags[g.ColumnFor(c)] = c == v
		}
	}
	return Encoding{EducationLevel: level, Flags: flags}, nil
}

// EncodeCategory expands a single value of g.
func EncodeCategory(g Group, value string) (map[string]bool, error) {
	if !g.Contains(value) {
		return nil, &ValidationError{Kind: KindInvalidCategory, Field: g.Column, Value: value}
	}
	flags := make(map[string]bool, len(g.Values))
	for _, c := range g.Values {
		flags[g.ColumnFor(c)] = c == value
	}
	return flags, nil
}

// EducationLevelFromLabel maps a parental education label (English or Indonesian) or an
// already ordinal "1".."3" to its ordinal.
func EducationLevelFromLabel(label string) (int, error) {
	if level, ok := educationLabels[label]; ok {
		return level, nil
	}
	if n, err := strconv.Atoi(label); err == nil && n >= 1 && n <= 3 {
		return n, nil
	}
	return 0, &ValidationError{Kind: KindInvalidCategory, Field: ColParentalEducationLevel, Value: label}
}

// EncodedColumns returns every boolean column, group by group.
func EncodedColumns() []string {
	var cols []string
	for _, g := range Groups {
		cols = append(cols, g.Columns()...)
	}
	return cols
}

// ModelColumns returns the full set of columns the pipeline produces for the model.
func ModelColumns() []string {
	cols := []string{
		ColParentalInvolvement,
		ColAccessToResources,
		ColPreviousScores,
		ColTutoringSessions,
		ColParentalEducationLevel,
	}
	cols = append(cols, EncodedColumns()...)
	return append(cols, ColDimension)
}

// BatchColumns returns the columns a batch file must carry, in the documented order.
func BatchColumns() []string {
	cols := []string{
		ColParentalInvolvement,
		ColAccessToResources,
		ColPreviousScores,
		ColTutoringSessions,
		ColParentalEducationLevel,
	}
	cols = append(cols, EncodedColumns()...)
	return append(cols, ColAttendance, ColHoursStudied)
}
