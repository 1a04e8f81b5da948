package commands

import (
	"notifyapp/internal/config"
	"notifyapp/internal/mailer"
	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"

	"github.com/spf13/cobra"
)

// MailCommands returns the messaging transport commands
func MailCommands(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	mailCmd := &cobra.Command{
		Use:   "mail",
		Short: "Messaging transport commands",
		Long: `Messaging transport commands for the notification relay service.

Available commands:
  test      - Send a test message through the configured SMTP transport`,
	}

	mailCmd.AddCommand(mailTestCmd(cfg, logger))

	return mailCmd
}

func mailTestCmd(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test message through the configured SMTP transport",
		Long:  `Dial the configured SMTP server, send a test message to the given recipient and close the connection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc := mailer.New(cfg, logger)

			if !svc.IsEnabled() {
				logger.Warn(ctx, "Messaging transport is disabled, nothing to send")
				return nil
			}

			if err := svc.Startup(ctx); err != nil {
				return contextutils.WrapError(err, "transport startup failed")
			}
			defer func() {
				if err := svc.Shutdown(ctx); err != nil {
					logger.Warn(ctx, "Failed to close messaging transport", map[string]interface{}{"error": err.Error()})
				}
			}()

			if err := svc.Send(ctx, to,
				"Notification relay test message",
				"This is a test message from the adm CLI.",
			); err != nil {
				return contextutils.WrapError(err, "test message failed")
			}

			logger.Info(ctx, "Test message sent", map[string]interface{}{"to": to})
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address for the test message")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
