// Package features turns a student's raw attributes into the encoded columns the
// exam score model was fitted on.
//
// It owns the canonical category values, the boolean expansion of categorical
// fields, the ordinal mapping of parental education and the localized label
// tables used at the input boundary. Everything here is pure and safe for
// concurrent use.
package features

// Canonical category values. These are the English names the model was fitted with,
// independent of the display language.
const (
	Yes = "Yes"
	No  = "No"

	Private = "Private"
	Public  = "Public"

	Negative = "Negative"
	Neutral  = "Neutral"
	Positive = "Positive"

	Male   = "Male"
	Female = "Female"

	HighSchool   = "High School"
	College      = "College"
	Postgraduate = "Postgraduate"
)

// Column names of the raw and encoded tables.
const (
	ColPreviousScores         = "Previous_Scores"
	ColAttendance             = "Attendance"
	ColHoursStudied           = "Hours_Studied"
	ColTutoringSessions       = "Tutoring_Sessions"
	ColParentalInvolvement    = "Parental_Involvement"
	ColAccessToResources      = "Access_to_Resources"
	ColParentalEducationLevel = "Parental_Education_Level"
	ColDimension              = "dimension"

	ColExtracurricular      = "Extracurricular_Activities"
	ColInternetAccess       = "Internet_Access"
	ColSchoolType           = "School_Type"
	ColPeerInfluence        = "Peer_Influence"
	ColLearningDisabilities = "Learning_Disabilities"
	ColGender               = "Gender"
)

// StudentRecord holds one student's raw inputs. Categorical fields carry canonical values.
type StudentRecord struct {
	PreviousScores      float64 `json:"previous_scores"`
	Attendance          float64 `json:"attendance"`
	HoursStudied        float64 `json:"hours_studied"`
	TutoringSessions    float64 `json:"tutoring_sessions"`
	ParentalInvolvement float64 `json:"parental_involvement"`
	AccessToResources   float64 `json:"access_to_resources"`

	ParentalEducationLevel string `json:"parental_education_level"`
	Extracurricular        string `json:"extracurricular"`
	InternetAccess         string `json:"internet_access"`
	SchoolType             string `json:"school_type"`
	PeerInfluence          string `json:"peer_influence"`
	LearningDisabilities   string `json:"learning_disabilities"`
	Gender                 string `json:"gender"`
}

// category returns the record's value for a boolean group.
func (r StudentRecord) category(group string) string {
	switch group {
	case ColExtracurricular:
		return r.Extracurricular
	case ColInternetAccess:
		return r.InternetAccess
	case ColSchoolType:
		return r.SchoolType
	case ColPeerInfluence:
		return r.PeerInfluence
	case ColLearningDisabilities:
		return r.LearningDisabilities
	case ColGender:
		return r.Gender
	}
	return ""
}

// PassThroughColumns are numeric inputs handed to the model unchanged.
var PassThroughColumns = []string{ColParentalInvolvement, ColAccessToResources, ColTutoringSessions}

// ReducerColumns are the inputs of the dimension reducer, in fitted order.
var ReducerColumns = []string{ColAttendance, ColHoursStudied}

// ScalerColumns are the inputs and outputs of the scaler, in fitted order.
var ScalerColumns = []string{ColPreviousScores, ColDimension}
