package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"seqthink/internal/archive"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show transcript archive statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	s, err := archive.New(cfg.Archive.Path)
	if err != nil {
		exitErr("open archive", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.Archive.Path)
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
