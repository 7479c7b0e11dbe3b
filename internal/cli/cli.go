package cli

import (
	"context"

	"github.com/spf13/cobra"

	"replayRecorder/internal/cli/commands"
	"replayRecorder/internal/config"
	"replayRecorder/internal/logger"
)

type CLI struct {
	root           *cobra.Command
	recordHandler  *commands.RecordHandler
	historyHandler *commands.HistoryHandler
	flags          commands.RecordFlags
	historyLimit   int
	historyID      uint
}

func New(cfg *config.Cfg, log *logger.Zap) *CLI {
	c := &CLI{
		recordHandler:  commands.NewRecordHandler(cfg, log),
		historyHandler: commands.NewHistoryHandler(cfg, log),
	}

	c.root = &cobra.Command{
		Use:   `replays -l "[replays]"`,
		Short: "Record Pokémon Showdown replays into video files",
		Long: `Opens each replay in headless Chromium, records the battle until the
requested turn or the victory message and saves a webm file into the output
directory (REPLAY_OUTPUT_DIR, "replays" by default).

A turn range may follow a link: "<link> 3-10" records turns 3 to 10,
"<link> -8.2" stops at the second message of turn 8.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.recordHandler.Run(cmd.Context(), c.flags)
		},
	}

	f := c.root.Flags()
	f.StringVarP(&c.flags.Links, "links", "l", "", "List of ps replay links separated by a comma or space")
	f.BoolVar(&c.flags.NoMusic, "nomusic", false, "Disable music in the player (the video is recorded without sound anyway)")
	f.BoolVar(&c.flags.NoAudio, "noaudio", false, "Disable all audio in the player (the video is recorded without sound anyway)")
	f.StringVarP(&c.flags.Speed, "speed", "s", "normal", "Speed (really fast, fast, normal, slow, really slow)")
	f.BoolVar(&c.flags.NoChat, "nochat", false, "Will not record chat")
	f.BoolVar(&c.flags.NoTeams, "noteams", false, "Will not show teams")
	f.StringVarP(&c.flags.Theme, "theme", "t", "auto", "Color Scheme (auto, dark, light)")
	f.StringVarP(&c.flags.Bulk, "bulk", "b", "all", `Bulk record option (a number >= 1 or "all")`)
	f.BoolVarP(&c.flags.Debug, "debug", "d", false, "Print the battle log to the console while recording")
	f.BoolVar(&c.flags.GIF, "gif", false, "Also convert every recording into a gif")
	f.BoolVar(&c.flags.Open, "open", false, "Open every saved recording with the default system viewer")
	f.DurationVar(&c.flags.Timeout, "timeout", 0, "Record time limit per replay (default REPLAY_RECORD_TIMEOUT)")
	_ = c.root.MarkFlagRequired("links")

	history := &cobra.Command{
		Use:   "history",
		Short: "Show recorded replays (requires DB_HOST)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.historyHandler.Run(cmd.OutOrStdout(), c.historyLimit, c.historyID)
		},
	}
	history.Flags().IntVarP(&c.historyLimit, "limit", "n", 50, "How many recordings to show")
	history.Flags().UintVar(&c.historyID, "id", 0, "Show a single recording by id")
	c.root.AddCommand(history)

	return c
}

func (c *CLI) Run(ctx context.Context) error {
	return c.root.ExecuteContext(ctx)
}
