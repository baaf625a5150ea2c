package main

import (
	"fmt"
	"text/tabwriter"

	"exam-score/internal/ml"

	"github.com/spf13/cobra"
)

func artifactsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage the stored model bundles",
	}
	cmd.AddCommand(
		importCmd(a),
		listCmd(a),
		activateCmd(a),
		rollbackCmd(a),
		sampleCmd(),
	)
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var (
		version  string
		activate bool
	)

	cmd := &cobra.Command{
		Use:   "import DIR",
		Short: "Store the bundle found in DIR as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ml.ReadBundleDir(args[0])
			if err != nil {
				return err
			}
			if version != "" {
				b.Version = version
				b.Metadata.Version = version
			}

			return a.withRegistry(func(mm *ml.ModelManager) error {
				v, err := mm.Import(b)
				if err != nil {
					return err
				}
				if activate {
					if err := mm.Activate(v); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "version to store the bundle under (default from metadata)")
	cmd.Flags().BoolVar(&activate, "activate", false, "activate the bundle after importing it")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored bundles, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(func(mm *ml.ModelManager) error {
				infos, err := mm.List()
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tCREATED\tALGORITHM\tACTIVE")
				for _, info := range infos {
					active := ""
					if info.IsActive {
						active = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						info.Version,
						info.CreatedAt.Format("2006-01-02 15:04:05"),
						info.Metadata.Algorithm,
						active)
				}
				return w.Flush()
			})
		},
	}
}

func activateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate VERSION",
		Short: "Make VERSION the bundle loaded at startup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(func(mm *ml.ModelManager) error {
				return mm.Activate(args[0])
			})
		},
	}
}

func rollbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Activate the version stored before the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRegistry(func(mm *ml.ModelManager) error {
				v, err := mm.Rollback()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample DIR",
		Short: "Write the built-in demonstration bundle to DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ml.WriteBundleDir(args[0], ml.SampleBundle())
		},
	}
}
