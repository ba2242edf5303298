package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voice-memos-go/internal/media"
)

func newRepairCmd(a *app) *cobra.Command {
	var file, outDir string
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Try every re-encode strategy on a damaged file",
		Long: `Re-encode a damaged recording to WAV, MP3, OGG and FLAC with
tolerant input options and report which attempts produced a usable file.
Outputs are named <base>_repaired.<ext>.

Examples:
  memo repair -f broken.webm
  memo repair -f broken.webm -d /tmp/repaired`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(file); err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Dir(file)
			}
			asset, err := media.Stat(file)
			if err != nil {
				return err
			}

			outcomes, repairErr := a.deps().Normalizer.Repair(cmd.Context(), asset, outDir)

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STRATEGY\tRESULT\tSIZE\tDURATION\tOUTPUT")
			for _, o := range outcomes {
				if !o.OK() {
					fmt.Fprintf(tw, "%s\tfailed\t-\t-\t%v\n", o.Strategy, o.Err)
					continue
				}
				fmt.Fprintf(tw, "%s\tok\t%s\t%s\t%s\n", o.Strategy, formatBytes(o.Size), formatDuration(o.Duration), o.Path)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return repairErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Damaged audio file")
	cmd.Flags().StringVarP(&outDir, "dir", "d", "", "Output directory (default: next to the input)")
	return cmd
}
