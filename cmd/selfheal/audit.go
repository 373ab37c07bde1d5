package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-selfheal/internal/audit"
)

func newAuditCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print recent remediation outcomes from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cfg.Audit.Path == "" {
				return errors.New("audit.path is not configured")
			}

			store, err := audit.Open(a.cfg.Audit.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(map[string]any{
					"id":          e.ID,
					"time":        e.Time.Format(time.RFC3339),
					"action":      e.Action,
					"instance_id": e.InstanceID,
					"outcome":     e.Outcome,
					"message":     e.Message,
					"command_id":  e.CommandID,
					"notified":    e.Notified,
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to print")
	return cmd
}
