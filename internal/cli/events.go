package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Narrative event log commands",
	}

	cmd.AddCommand(newEventsListCmd())
	cmd.AddCommand(newEventsStreamCmd())

	return cmd
}

func newEventsListCmd() *cobra.Command {
	var kingdomID string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			if kingdomID != "" {
				q.Set("kingdom_id", kingdomID)
			}
			var result []Event

			if err := client.Get("/api/events?"+q.Encode(), &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&kingdomID, "kingdom", "", "Only events of this kingdom")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of events to skip")

	return cmd
}

// streamEnvelope mirrors the frames written by the realtime endpoint
type streamEnvelope struct {
	Type  string `json:"type"`
	Event *Event `json:"event,omitempty"`
}

func newEventsStreamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Stream events live over WebSocket",
		Long: `Connect to the realtime endpoint and print every event recorded for
your account as it happens. Super-admins see every tenant's events.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd)
		},
	}
}

func streamEvents(ctx context.Context, cmd *cobra.Command) error {
	if client.Token() == "" {
		return fmt.Errorf("not logged in: run 'realmctl auth login' first")
	}

	wsURL, err := client.WebSocketURL()
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+client.Token())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	out := NewOutput(cmd.OutOrStdout(), cfg.Output)
	for {
		var env streamEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				out.PrintMessage("Disconnected")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		switch {
		case env.Type == "connected":
			out.PrintMessage("Connected, waiting for events")
		case env.Event != nil:
			out.Print(*env.Event)
		}
	}
}
