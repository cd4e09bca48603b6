package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flux-p2p/flux/transfer"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Offer a file and print its transfer code",
	Long: `Offer a file and print its transfer code.

The command blocks until the transfer reaches a terminal state. Share the
printed code with the receiving side out-of-band.

Example:
	flux send ./archive.tar -p hunter2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPassword == "" {
			return errors.New("a shared password is required (--password)")
		}

		cfg, err := transfer.ConfigFromEnv()
		if err != nil {
			return err
		}
		engine := transfer.NewEngine(cfg)
		defer engine.Close()

		done := make(chan transfer.Event, 1)
		_, err = engine.Send(args[0], flagPassword, func(e transfer.Event) {
			switch e.Type {
			case transfer.EventCodeIssued:
				fmt.Printf("transfer code: %s\n", e.Code)
				fmt.Printf("receiver should be reachable via host %s port %d\n",
					transfer.LocalIP(), cfg.Port)
			case transfer.EventProgress:
				fmt.Printf("\rsending: %3d%%", e.Percent)
			case transfer.EventCompleted, transfer.EventFailed, transfer.EventCancelled:
				select {
				case done <- e:
				default:
				}
			}
		})
		if err != nil {
			return err
		}

		final := <-done
		fmt.Println()
		if final.Type != transfer.EventCompleted {
			return fmt.Errorf("send did not complete: %s", final.Message)
		}
		fmt.Println("transfer completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
