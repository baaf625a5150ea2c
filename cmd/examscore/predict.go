package main

import (
	"fmt"

	"exam-score/internal/features"

	"github.com/spf13/cobra"
)

func predictCmd(a *app) *cobra.Command {
	var (
		r    features.StudentRecord
		lang string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the exam score of one student",
		Long: "Predict the exam score of one student. Categorical flags accept the labels of\n" +
			"--lang or the canonical English values.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := a.labels(lang)
			if err != nil {
				return err
			}
			rec, err := labels.Canonicalize(r)
			if err != nil {
				return localize(err, labels)
			}

			p, err := a.newPipeline(nil)
			if err != nil {
				return err
			}
			score, err := p.PredictOne(cmd.Context(), rec)
			if err != nil {
				return localize(err, labels)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.2f\n", labels.Message(features.MsgPredictedScore), score)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&r.PreviousScores, "previous-scores", 0, "previous exam score (0-100)")
	f.Float64Var(&r.Attendance, "attendance", 0, "attendance percentage (0-100)")
	f.Float64Var(&r.HoursStudied, "hours-studied", 0, "hours studied per week")
	f.Float64Var(&r.TutoringSessions, "tutoring-sessions", 0, "tutoring sessions per week")
	f.Float64Var(&r.ParentalInvolvement, "parental-involvement", 2, "parental involvement (1-3)")
	f.Float64Var(&r.AccessToResources, "access-to-resources", 2, "access to educational resources (1-3)")
	f.StringVar(&r.ParentalEducationLevel, "parental-education", features.HighSchool, "parental education level")
	f.StringVar(&r.Extracurricular, "extracurricular", features.No, "takes part in extracurricular activities")
	f.StringVar(&r.InternetAccess, "internet-access", features.Yes, "has internet access at home")
	f.StringVar(&r.SchoolType, "school-type", features.Public, "school type")
	f.StringVar(&r.PeerInfluence, "peer-influence", features.Neutral, "peer influence")
	f.StringVar(&r.LearningDisabilities, "learning-disabilities", features.No, "has learning disabilities")
	f.StringVar(&r.Gender, "gender", features.Male, "gender")
	f.StringVar(&lang, "lang", "", "language of the labels and messages (default from config)")

	for _, name := range []string{"previous-scores", "attendance", "hours-studied"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
