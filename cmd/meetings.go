package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/connection"
	"github.com/teemow/meetview/internal/logging"
	"github.com/teemow/meetview/internal/meetings"
	"github.com/teemow/meetview/internal/tools/meeting_tools"
)

func newMeetingsCmd() *cobra.Command {
	var (
		user      string
		format    string
		debugMode bool
	)

	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "Print the meetings view of one identity",
		Long: `Fetch the 5 most recent past and 5 soonest upcoming meetings of one
identity through the broker and print them.

The broker user id is the identifier stored for the user when
CONNECTION_STORE is memory or valkey, otherwise the email itself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetings(cmd, user, format, debugMode)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Verified email of the user (required)")
	cmd.Flags().StringVar(&format, "format", meeting_tools.FormatText, "Output format: text, json or ics")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runMeetings(cmd *cobra.Command, user, format string, debugMode bool) error {
	switch format {
	case meeting_tools.FormatText, meeting_tools.FormatJSON, meeting_tools.FormatICS:
	default:
		return fmt.Errorf("unsupported format %q (supported: text, json, ics)", format)
	}

	logger := logging.NewLogger(os.Stderr, logging.FormatText, debugMode)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, cfg.Broker.Timeout+5*time.Second)
	defer cancel()

	connectionID, err := connection.StoredID(ctx, store, user)
	if err != nil {
		logger.Warn("connection identifier lookup failed", logging.Err(err))
	}

	fetcher := meetings.NewFetcher(cfg, newBrokerClient(cfg, logger, nil), meetings.WithLogger(logger))
	view, err := fetcher.Fetch(ctx, meetings.Query{User: user, ConnectionID: connectionID})
	if err != nil {
		if ae, ok := apperror.As(err); ok && ae.Hint != "" {
			return fmt.Errorf("%s: %s", ae.Message, ae.Hint)
		}
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case meeting_tools.FormatJSON:
		b, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode meetings: %w", err)
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	case meeting_tools.FormatICS:
		body, err := meetings.ICS(view, time.Now())
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err
	default:
		_, err = fmt.Fprint(out, meeting_tools.FormatView(view))
		return err
	}
}
