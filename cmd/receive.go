package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flux-p2p/flux/transfer"
)

var flagSaveDir string

// receiveCmd represents the receive command
var receiveCmd = &cobra.Command{
	Use:   "receive <code>",
	Short: "Fetch the file behind a transfer code",
	Long: `Fetch the file behind a transfer code.

Binds the transfer port, waits for the sender to connect, and writes the
received file into the save directory under its original name.

Example:
	flux receive 042137 -p hunter2 -d ~/Downloads`,
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
		handle, err := engine.Receive(flagSaveDir, flagPassword, args[0], func(e transfer.Event) {
			switch e.Type {
			case transfer.EventProgress:
				fmt.Printf("\rreceiving: %3d%%", e.Percent)
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
		defer handle.Close()

		final := <-done
		fmt.Println()
		if final.Type != transfer.EventCompleted {
			return fmt.Errorf("receive did not complete: %s", final.Message)
		}

		if rec, ok := engine.Status(handle.TransferID); ok {
			fmt.Printf("saved to %s\n", rec.FilePath)
		}
		return nil
	},
}

func init() {
	receiveCmd.Flags().StringVarP(&flagSaveDir, "dir", "d", ".", "directory to save the received file into")
	rootCmd.AddCommand(receiveCmd)
}
