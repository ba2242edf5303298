package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voice-memos-go/internal/media"
)

var errInvalid = errors.New("file is not usable audio")

func newValidateCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a file's container header and audio stream",
		Long: `Run the same checks an upload goes through: existence, size, the
WebM EBML magic bytes and an ffprobe pass that must find an audio stream.
Exits non-zero when the file would be rejected.

Example:
  memo validate -f recording.webm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("input file is required, use -f flag")
			}
			insp := a.deps().Inspector
			v := insp.ValidateContainer(cmd.Context(), file)
			fmt.Fprintln(a.out, v)
			if !v.Valid {
				return errInvalid
			}

			asset, err := media.Stat(file)
			if err != nil {
				return err
			}
			res, err := insp.Probe(cmd.Context(), asset)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "format:      %s\n", res.FormatName)
			fmt.Fprintf(a.out, "duration:    %s\n", formatDuration(res.DurationSeconds))
			fmt.Fprintf(a.out, "size:        %s\n", formatBytes(asset.Size))
			if res.SampleRate > 0 {
				fmt.Fprintf(a.out, "sample rate: %d Hz\n", res.SampleRate)
			}
			if res.Channels > 0 {
				fmt.Fprintf(a.out, "channels:    %d\n", res.Channels)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Audio file to check")
	return cmd
}
