package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randyrektor/obs-gameshow-overlay/internal/export"
	filesink "github.com/randyrektor/obs-gameshow-overlay/internal/infra/file"
)

// NewExportCmd converts a session log file into marker formats offline, so
// post-production can re-export after the server is gone.
func NewExportCmd() *cobra.Command {
	var (
		format string
		fps    float64
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <session-file>",
		Short: "Convert a session log file into editor markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := filesink.Load(args[0])
			if err != nil {
				return err
			}

			var body []byte
			switch format {
			case "json":
				body, err = export.MarkersJSON(doc.Events, fps)
			case "xml":
				body, err = export.ToTimelineXML(doc.SessionID, doc.Events, fps)
			case "csv":
				body, err = export.ToCSV(doc.Events)
			default:
				return fmt.Errorf("unknown format %q (want json, xml, or csv)", format)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(output, body, 0o644)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json, xml, or csv")
	cmd.Flags().Float64Var(&fps, "fps", 30, "target frame rate for marker timecodes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
