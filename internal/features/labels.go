package features

import "sort"

// Form field keys shared by the label tables and the JSON input.
const (
	FieldParentalEducationLevel = "parental_education_level"
	FieldExtracurricular        = "extracurricular"
	FieldInternetAccess         = "internet_access"
	FieldSchoolType             = "school_type"
	FieldPeerInfluence          = "peer_influence"
	FieldLearningDisabilities   = "learning_disabilities"
	FieldGender                 = "gender"
)

// Message keys.
const (
	MsgMissingColumns = "missing_cols"
	MsgFileError      = "error_file"
	MsgInvalidInput   = "invalid_input"
	MsgPredictFailed  = "predict_failed"
	MsgSuccess        = "success"
	MsgBatchSuccess   = "multi_success"
	MsgPredictedScore = "predicted_score"
)

// Option is one selectable value: what the user sees and what the pipeline receives.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Labels is the display text of one language.
type Labels struct {
	Language string              `json:"language"`
	Title    string              `json:"title"`
	Captions map[string]string   `json:"captions"`
	Options  map[string][]Option `json:"options"`
	Messages map[string]string   `json:"messages"`
}

func options(labels []string, values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Label: labels[i], Value: v}
	}
	return out
}

var languages = map[string]*Labels{
	"Indonesia": {
		Language: "Indonesia",
		Title:    "Prediksi Nilai Ujian Siswa",
		Captions: map[string]string{
			"parental_involvement":      "Keterlibatan orang tua (1-3)",
			"access_to_resources":       "Akses ke sumber daya pendidikan (1-3)",
			"previous_scores":           "Nilai Sebelumnya",
			"tutoring_sessions":         "Sesi Bimbingan / Minggu",
			FieldParentalEducationLevel: "Tingkat Pendidikan Orang Tua",
			FieldExtracurricular:        "Ikut Ekstrakurikuler?",
			FieldInternetAccess:         "Akses Internet di Rumah?",
			FieldSchoolType:             "Tipe Sekolah",
			FieldPeerInfluence:          "Pengaruh Teman",
			FieldLearningDisabilities:   "Hambatan Belajar?",
			FieldGender:                 "Jenis Kelamin",
			"attendance":                "Kehadiran (%)",
			"hours_studied":             "Jam Belajar / Minggu",
		},
		Options: map[string][]Option{
			FieldParentalEducationLevel: options([]string{"SMA", "Kuliah", "Pascasarjana"}, HighSchool, College, Postgraduate),
			FieldExtracurricular:        options([]string{"Ya", "Tidak"}, Yes, No),
			FieldInternetAccess:         options([]string{"Ya", "Tidak"}, Yes, No),
			FieldSchoolType:             options([]string{"Swasta", "Negeri"}, Private, Public),
			FieldPeerInfluence:          options([]string{"Negatif", "Netral", "Positif"}, Negative, Neutral, Positive),
			FieldLearningDisabilities:   options([]string{"Ya", "Tidak"}, Yes, No),
			FieldGender:                 options([]string{"Laki-laki", "Perempuan"}, Male, Female),
		},
		Messages: map[string]string{
			MsgMissingColumns: "Kolom hilang dalam file:",
			MsgFileError:      "Terjadi kesalahan saat memproses file:",
			MsgInvalidInput:   "Input tidak valid:",
			MsgPredictFailed:  "Prediksi gagal:",
			MsgSuccess:        "Prediksi berhasil!",
			MsgBatchSuccess:   "Prediksi berhasil untuk semua siswa!",
			MsgPredictedScore: "Nilai Ujian yang Diprediksi",
		},
	},
	"English": {
		Language: "English",
		Title:    "Student Performance Prediction",
		Captions: map[string]string{
			"parental_involvement":      "Parental Involvement (1-3)",
			"access_to_resources":       "Access to Educational Resources (1-3)",
			"previous_scores":           "Previous Scores",
			"tutoring_sessions":         "Tutoring Sessions per Week",
			FieldParentalEducationLevel: "Parental Education Level",
			FieldExtracurricular:        "Join Extracurricular Activities?",
			FieldInternetAccess:         "Internet Access at Home?",
			FieldSchoolType:             "School Type",
			FieldPeerInfluence:          "Peer Influence",
			FieldLearningDisabilities:   "Learning Disabilities?",
			FieldGender:                 "Gender",
			"attendance":                "Attendance (%)",
			"hours_studied":             "Hours Studied per Week",
		},
		Options: map[string][]Option{
			FieldParentalEducationLevel: options([]string{"High School", "College", "Postgraduate"}, HighSchool, College, Postgraduate),
			FieldExtracurricular:        options([]string{"Yes", "No"}, Yes, No),
			FieldInternetAccess:         options([]string{"Yes", "No"}, Yes, No),
			FieldSchoolType:             options([]string{"Private", "Public"}, Private, Public),
			FieldPeerInfluence:          options([]string{"Negative", "Neutral", "Positive"}, Negative, Neutral, Positive),
			FieldLearningDisabilities:   options([]string{"Yes", "No"}, Yes, No),
			FieldGender:                 options([]string{"Male", "Female"}, Male, Female),
		},
		Messages: map[string]string{
			MsgMissingColumns: "Missing columns in file:",
			MsgFileError:      "Error processing file:",
			MsgInvalidInput:   "Invalid input:",
			MsgPredictFailed:  "Prediction failed:",
			MsgSuccess:        "Prediction successful!",
			MsgBatchSuccess:   "Predictions successful for all students!",
			MsgPredictedScore: "Predicted Exam Score",
		},
	},
}

// LookupLanguage returns the label table of a language.
func LookupLanguage(name string) (*Labels, bool) {
	l, ok := languages[name]
	return l, ok
}

// Languages returns the supported language names, sorted.
func Languages() []string {
	names := make([]string, 0, len(languages))
	for n := range languages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a displayed label of field to its canonical value. Canonical values are
// accepted as-is so callers that already speak the model's vocabulary need no table.
func (l *Labels) Resolve(field, label string) (string, error) {
	for _, o := range l.Options[field] {
		if o.Label == label || o.Value == label {
			return o.Value, nil
		}
	}
	return "", &ValidationError{Kind: KindInvalidCategory, Field: field, Value: label}
}

// Canonicalize returns r with every categorical field resolved from this language's labels.
func (l *Labels) Canonicalize(r StudentRecord) (StudentRecord, error) {
	fields := []struct {
		name string
		val  *string
	}{
		{FieldParentalEducationLevel, &r.ParentalEducationLevel},
		{FieldExtracurricular, &r.Extracurricular},
		{FieldInternetAccess, &r.InternetAccess},
		{FieldSchoolType, &r.SchoolType},
		{FieldPeerInfluence, &r.PeerInfluence},
		{FieldLearningDisabilities, &r.LearningDisabilities},
		{FieldGender, &r.Gender},
	}
	for _, f := range fields {
		v, err := l.Resolve(f.name, *f.val)
		if err != nil {
			return StudentRecord{}, err
		}
		*f.val = v
	}
	return r, nil
}

// Message returns a localized message, or the key when it is unknown.
func (l *Labels) Message(key string) string {
	if m, ok := l.Messages[key]; ok {
		return m
	}
	return key
}
