package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/toolcall/dispatch"
)

// errCallFailed is returned after printing an outcome that did not succeed.
var errCallFailed = errors.New("call did not succeed")

func newCallCmd(g *globals) *cobra.Command {
	var (
		rawArgs string
		topicID string
	)
	cmd := &cobra.Command{
		Use:   "call NAMESPACE OPERATION",
		Short: "Dispatch one tool call and print its outcome",
		Long: `Dispatches one call through the full lifecycle and prints the outcome as JSON.
Arguments are parsed the way model output is: anything that is not a JSON
object becomes an empty argument map.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.dispatcher.Dispatch(cmd.Context(), dispatch.Call{
				ID:        uuid.NewString(),
				Namespace: args[0],
				Operation: args[1],
				Args:      dispatch.ParseArgs(rawArgs),
				MessageID: "cli",
				TopicID:   topicID,
			})
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out.Phase != dispatch.PhaseSucceeded {
				return fmt.Errorf("%w: %s", errCallFailed, out.Phase)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "{}", "Call arguments as a JSON object")
	cmd.Flags().StringVar(&topicID, "topic", "", "Topic the call belongs to")
	return cmd
}
