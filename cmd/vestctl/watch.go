package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/vesting-api/internal/logging"
	"github.com/dimitrije/vesting-api/pkg/messaging"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		url    string
		prefix string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail grant events from NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = os.Getenv("NATS_URL")
			}
			if url == "" {
				url = nats.DefaultURL
			}

			client, err := messaging.NewClient(messaging.Config{
				URL:            url,
				Name:           "vestctl-watch",
				ReconnectWait:  2 * time.Second,
				MaxReconnects:  -1,
				ConnectTimeout: 5 * time.Second,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			subject := messaging.Subject(prefix, ">")
			err = client.Subscribe(subject, func(msg *nats.Msg) {
				line, err := formatEvent(msg.Data)
				if err != nil {
					logging.L.Warn("undecodable event", "subject", msg.Subject, "err", err)
					return
				}
				fmt.Fprintln(out, line)
			})
			if err != nil {
				return err
			}
			logging.L.Info("watching", "subject", subject, "url", url)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			if err := client.Unsubscribe(subject); err != nil {
				logging.L.Warn("unsubscribe failed", "subject", subject, "err", err)
			}
			logging.L.Info("stopped watching", "subject", subject, "reconnects", client.Reconnects())
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats-url", "", "NATS server (defaults to NATS_URL)")
	cmd.Flags().StringVar(&prefix, "prefix", "vesting", "subject prefix")
	return cmd
}

func formatEvent(data []byte) (string, error) {
	var event messaging.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	ts := event.Timestamp.Format(time.RFC3339)

	switch event.Type {
	case messaging.EventTypeGrantCreated:
		d, err := messaging.ParseEventData[messaging.GrantCreatedEvent](&event)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s created grant=%s employer=%s employee=%s deposited=%s %s",
			ts, d.Grant, d.Employer, d.Employee, d.Deposited, d.Asset), nil
	case messaging.EventTypeGrantClaimed:
		d, err := messaging.ParseEventData[messaging.GrantClaimedEvent](&event)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s claimed grant=%s amount=%s total=%s remaining=%s",
			ts, d.Grant, d.Amount, d.TotalClaimed, d.Remaining), nil
	default:
		return fmt.Sprintf("%s %s aggregate=%s", ts, event.Type, event.AggregateID), nil
	}
}
