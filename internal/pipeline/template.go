package pipeline

import (
	"io"

	"exam-score/internal/features"

	"github.com/gocarina/gocsv"
)

// flag renders booleans the way spreadsheet exports of the training data do.
type flag bool

func (f flag) MarshalCSV() (string, error) {
	if f {
		return "True", nil
	}
	return "False", nil
}

// templateRow is one line of a batch file. Field order is the RequiredColumns order.
type templateRow struct {
	ParentalInvolvement    float64 `csv:"Parental_Involvement"`
	AccessToResources      float64 `csv:"Access_to_Resources"`
	PreviousScores         float64 `csv:"Previous_Scores"`
	TutoringSessions       float64 `csv:"Tutoring_Sessions"`
	ParentalEducationLevel string  `csv:"Parental_Education_Level"`

	ExtracurricularNo  flag `csv:"Extracurricular_Activities_No"`
	ExtracurricularYes flag `csv:"Extracurricular_Activities_Yes"`
	InternetNo         flag `csv:"Internet_Access_No"`
	InternetYes        flag `csv:"Internet_Access_Yes"`
	SchoolPrivate      flag `csv:"School_Type_Private"`
	SchoolPublic       flag `csv:"School_Type_Public"`
	PeerNegative       flag `csv:"Peer_Influence_Negative"`
	PeerNeutral        flag `csv:"Peer_Influence_Neutral"`
	PeerPositive       flag `csv:"Peer_Influence_Positive"`
	DisabilitiesNo     flag `csv:"Learning_Disabilities_No"`
	DisabilitiesYes    flag `csv:"Learning_Disabilities_Yes"`
	GenderFemale       flag `csv:"Gender_Female"`
	GenderMale         flag `csv:"Gender_Male"`

	Attendance   float64 `csv:"Attendance"`
	HoursStudied float64 `csv:"Hours_Studied"`
}

func newTemplateRow(r features.StudentRecord) (templateRow, error) {
	enc, err := features.Encode(r)
	if err != nil {
		return templateRow{}, err
	}
	f := func(group, value string) flag {
		return flag(enc.Flags[group+"_"+value])
	}
	return templateRow{
		ParentalInvolvement:    r.ParentalInvolvement,
		AccessToResources:      r.AccessToResources,
		PreviousScores:         r.PreviousScores,
		TutoringSessions:       r.TutoringSessions,
		ParentalEducationLevel: r.ParentalEducationLevel,

		ExtracurricularNo:  f(features.ColExtracurricular, features.No),
		ExtracurricularYes: f(features.ColExtracurricular, features.Yes),
		InternetNo:         f(features.ColInternetAccess, features.No),
		InternetYes:        f(features.ColInternetAccess, features.Yes),
		SchoolPrivate:      f(features.ColSchoolType, features.Private),
		SchoolPublic:       f(features.ColSchoolType, features.Public),
		PeerNegative:       f(features.ColPeerInfluence, features.Negative),
		PeerNeutral:        f(features.ColPeerInfluence, features.Neutral),
		PeerPositive:       f(features.ColPeerInfluence, features.Positive),
		DisabilitiesNo:     f(features.ColLearningDisabilities, features.No),
		DisabilitiesYes:    f(features.ColLearningDisabilities, features.Yes),
		GenderFemale:       f(features.ColGender, features.Female),
		GenderMale:         f(features.ColGender, features.Male),

		Attendance:   r.Attendance,
		HoursStudied: r.HoursStudied,
	}, nil
}

// ExampleRecord is the record shown in the batch template.
func ExampleRecord() features.StudentRecord {
	return features.StudentRecord{
		PreviousScores:         75,
		Attendance:             85,
		HoursStudied:           20,
		TutoringSessions:       1,
		ParentalInvolvement:    2,
		AccessToResources:      2,
		ParentalEducationLevel: features.College,
		Extracurricular:        features.Yes,
		InternetAccess:         features.Yes,
		SchoolType:             features.Public,
		PeerInfluence:          features.Neutral,
		LearningDisabilities:   features.No,
		Gender:                 features.Female,
	}
}

// WriteTemplate writes a batch file header followed by one row per example record.
func WriteTemplate(w io.Writer, examples ...features.StudentRecord) error {
	rows := make([]templateRow, 0, len(examples))
	for _, r := range examples {
		row, err := newTemplateRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(&rows, w)
}
