package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/processor"
)

func newProcessCmd(a *app) *cobra.Command {
	var file, lang string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Transcribe, title and store a recording",
		Long: `Run the full upload flow on a local file: transcribe it, generate a
title and append a new recording to the metadata store. The stored record
is printed as JSON.

Examples:
  memo process -f meeting.webm
  memo process -f shiur.mp3 -l hebrew`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFile(file); err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			proc := processor.New(a.deps().Pipeline, extractor.NewTitler(a.llm()), st, a.log.Entry)

			rec, err := proc.Process(cmd.Context(), file, lang)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Audio file to process")
	cmd.Flags().StringVarP(&lang, "lang", "l", "english", "Spoken language (english or hebrew)")
	return cmd
}
