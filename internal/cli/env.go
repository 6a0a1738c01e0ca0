package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewEnvCmd создаёт группу команд для окружений.
func NewEnvCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "env",
		Aliases: []string{"environment"},
		Short:   "Manage target environments",
	}

	cmd.AddCommand(
		newEnvListCmd(clientFn, outputFn),
		newEnvAddCmd(clientFn, outputFn),
		newEnvDeleteCmd(clientFn, outputFn),
		newEnvActivateCmd(clientFn, outputFn),
		newEnvSetCmd(clientFn, outputFn),
		newEnvUnsetCmd(clientFn, outputFn),
	)

	return cmd
}

func printEnvironment(out *Output, env *EnvironmentResponse) {
	rows := make([][]string, len(env.Variables))
	for i, v := range env.Variables {
		rows[i] = []string{v.Key, v.Value, strconv.FormatBool(v.Sensitive)}
	}
	out.Print([]string{"KEY", "VALUE", "SENSITIVE"}, rows, env)
}

func newEnvListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			envs, err := clientFn().ListEnvironments()
			if err != nil {
				return err
			}

			rows := make([][]string, len(envs))
			for i, e := range envs {
				active := ""
				if e.Active {
					active = "*"
				}
				rows[i] = []string{active, e.ID, e.Name, e.URL, strconv.Itoa(len(e.Variables))}
			}
			outputFn().Print([]string{"ACTIVE", "ID", "NAME", "URL", "VARS"}, rows, envs)
			return nil
		},
	}
}

func newEnvAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Add an environment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := CreateEnvironmentRequest{Name: args[0], URL: args[1]}
			for _, kv := range vars {
				key, value, ok := strings.Cut(kv, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid variable format %q, expected KEY=VALUE", kv)
				}
				req.Variables = append(req.Variables, EnvVar{Key: key, Value: value})
			}

			env, err := clientFn().CreateEnvironment(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Environment added: %s", env.ID))
			printEnvironment(out, env)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable KEY=VALUE (repeatable)")

	return cmd
}

func newEnvDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteEnvironment(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Environment deleted: %s", args[0]))
			return nil
		},
	}
}

func newEnvActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Make an environment the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := clientFn().ActivateEnvironment(args[0])
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Active environment: %s (%s)", env.Name, env.URL))
			return nil
		},
	}
}

func newEnvSetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "set ID KEY VALUE",
		Short: "Set an environment variable",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := clientFn().SetVariable(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			printEnvironment(outputFn(), env)
			return nil
		},
	}
}

func newEnvUnsetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "unset ID KEY",
		Short: "Remove an environment variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := clientFn().DeleteVariable(args[0], args[1])
			if err != nil {
				return err
			}
			printEnvironment(outputFn(), env)
			return nil
		},
	}
}
