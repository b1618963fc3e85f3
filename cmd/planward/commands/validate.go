package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planward/planward/pkg/task"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <task-file>",
		Short: "Validate a planning task file",
		Long: `Validate a YAML planning task file.

This command checks:
  - YAML syntax validity
  - Variable, value, and operator name uniqueness
  - That init assigns every variable exactly once
  - That all facts reference declared variables and values
  - Non-negative operator costs`,
		Example: `  # Validate a task file
  planward validate task.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := task.Load(args[0])
			if err != nil {
				return err
			}

			log.Debug().
				Str("task", tk.Name()).
				Int("variables", tk.NumVariables()).
				Int("operators", tk.NumOperators()).
				Msg("Task loaded")

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"task":      tk.Name(),
					"valid":     true,
					"variables": tk.NumVariables(),
					"operators": tk.NumOperators(),
					"goals":     len(tk.Goal()),
				})
			}

			fmt.Printf("Task %q is valid: %d variables, %d operators, %d goal facts\n",
				tk.Name(), tk.NumVariables(), tk.NumOperators(), len(tk.Goal()))
			return nil
		},
	}

	return cmd
}
