package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"seqthink/internal/archive"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded transcripts as JSON",
		Long:  "Export archived thought transcripts as JSON, in chronological order. Filter by session with -s.",
		Run:   runExport,
	}

	cmd.Flags().StringP("session", "s", "", "Filter by session ID")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	s, err := archive.New(cfg.Archive.Path)
	if err != nil {
		exitErr("open archive", err)
	}
	defer s.Close()

	entries, err := s.Export(cmd.Context(), sessionID)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
