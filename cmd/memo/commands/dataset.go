package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voice-memos-go/internal/dataset"
	"voice-memos-go/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all recordings to an xlsx workbook",
		Example: `  memo export -o recordings.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			recs, err := st.List()
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := dataset.Export(f, recs); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported %d recordings to %s\n", len(recs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "recordings.xlsx", "Workbook to write")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add recordings from an exported workbook",
		Long: `Read the Recordings sheet of a workbook written by "memo export" and
add every row whose id is not already stored. Existing recordings are left
untouched.`,
		Example: `  memo import -f backup.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(file); err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			recs, err := dataset.Load(f)
			if err != nil {
				return fmt.Errorf("load %s: %w", file, err)
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}

			added, skipped := 0, 0
			for _, r := range recs {
				err := st.Add(r)
				switch {
				case errors.Is(err, store.ErrDuplicate):
					skipped++
				case err != nil:
					return fmt.Errorf("add %s: %w", r.ID, err)
				default:
					added++
				}
			}
			fmt.Fprintf(a.out, "imported %d recordings, skipped %d existing\n", added, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Workbook to read")
	return cmd
}
