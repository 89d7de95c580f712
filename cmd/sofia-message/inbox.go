package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arzzra/sofia_sip/pkg/journal"
)

// inboxEntry представление записи журнала для вывода
type inboxEntry struct {
	ID          int64  `yaml:"id"`
	ReceivedAt  string `yaml:"received_at"`
	From        string `yaml:"from"`
	To          string `yaml:"to,omitempty"`
	Subject     string `yaml:"subject,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
	Body        string `yaml:"body"`
}

func newInboxCmd(a *app) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Показать принятые сообщения из журнала",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.Open(a.cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			view := make([]inboxEntry, 0, len(entries))
			for _, e := range entries {
				view = append(view, inboxEntry{
					ID:          e.ID,
					ReceivedAt:  e.ReceivedAt.Local().Format(time.DateTime),
					From:        e.From,
					To:          e.To,
					Subject:     e.Subject,
					ContentType: e.ContentType,
					Body:        string(e.Payload),
				})
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return err
				}
				return enc.Close()
			case "table":
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tRECEIVED\tFROM\tSUBJECT\tBYTES")
				for i, e := range view {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", e.ID, e.ReceivedAt, e.From, e.Subject, len(entries[i].Payload))
				}
				return w.Flush()
			default:
				return fmt.Errorf("неизвестный формат вывода %q", output)
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "сколько последних сообщений показать, 0 - все")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "формат вывода: table, yaml")
	return cmd
}
