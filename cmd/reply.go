package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/autoreply/internal/agent"
	"github.com/nextlevelbuilder/autoreply/internal/config"
)

func replyCmd() *cobra.Command {
	var eventFile string
	cmd := &cobra.Command{
		Use:   "reply",
		Short: "Run the pipeline once for an inbound event and print the result",
		Long:  "Reads an inbound event as JSON (from --event, or stdin when omitted or \"-\") and runs it through the same pipeline the webhook uses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			return runReply(cmd.Context(), eventFile, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&eventFile, "event", "e", "", "inbound event JSON file (default: stdin)")
	return cmd
}

func readEvent(path string) (agent.InboundEvent, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return agent.InboundEvent{}, err
		}
		defer f.Close()
		r = f
	}
	var ev agent.InboundEvent
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return agent.InboundEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, ev.Validate()
}

func runReply(ctx context.Context, eventFile string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ev, err := readEvent(eventFile)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.pipeline.Run(ctx, ev)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
