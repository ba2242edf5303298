package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voice-memos-go/internal/pipeline"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var (
		file, lang, out string
		noCleanup       bool
	)
	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Print the transcript of an audio file",
		Long: `Transcribe a file of any size. Files over the upload ceiling are
re-encoded and split at silences; --no-cleanup keeps the intermediate
chunks for inspection.

Examples:
  memo transcribe -f lecture.webm
  memo transcribe -f lecture.webm --no-cleanup -o lecture.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(file); err != nil {
				return err
			}
			text, err := a.deps().Pipeline.Transcribe(cmd.Context(), file, pipeline.Options{
				Language:    lang,
				SkipCleanup: noCleanup,
			})
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				a.log.WithField("file", out).Info("transcript written")
				return nil
			}
			_, err = fmt.Fprintln(a.out, text)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Audio file to transcribe")
	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Spoken language (english or hebrew)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the transcript to this file instead of stdout")
	cmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "Keep intermediate files")
	return cmd
}
