// Command gspconsole is the operator CLI: a proper subcommand tool
// replacing the teacher's interactive federation REPL (tools/
// console.go) with direct, scriptable operations against a local
// entity store — init-chain, apply-block, dump-state, query.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chainrealm/pkg/config"
	"chainrealm/pkg/glue"
	"chainrealm/pkg/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gspconsole",
		Short: "Operator CLI for the chainrealm game-state processor",
	}

	root.PersistentFlags().String("db", "gspd.sqlite", "path to the consensus entity store")
	root.PersistentFlags().String("chain", "regtest", "chain profile: main, test, regtest")
	root.PersistentFlags().String("config", "", "path to a per-chain YAML config file")
	viper.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	viper.BindPFlag("chain", root.PersistentFlags().Lookup("chain"))
	viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	viper.SetEnvPrefix("GSPCONSOLE")
	viper.AutomaticEnv()

	root.AddCommand(newInitChainCmd(), newApplyBlockCmd(), newDumpStateCmd(), newQueryCmd())
	return root
}

func loadConfig() (*config.RoConfig, error) {
	chain := config.Chain(viper.GetString("chain"))
	if path := viper.GetString("config"); path != "" {
		return config.Load(chain, path)
	}
	return config.Default(chain), nil
}

func newInitChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-chain",
		Short: "Create the entity store and stamp the genesis state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			if err := glue.InitialiseState(db, cfg); err != nil {
				return fmt.Errorf("initialise state: %w", err)
			}
			height, hashHex := glue.InitialStateBlock(cfg.Chain)
			fmt.Printf("initialised chain %q at height %d, genesis %s\n", cfg.Chain, height, hashHex)
			return nil
		},
	}
}

func newApplyBlockCmd() *cobra.Command {
	var blockPath string
	cmd := &cobra.Command{
		Use:   "apply-block",
		Short: "Apply one block JSON document to the entity store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			var body []byte
			if blockPath == "" || blockPath == "-" {
				body, err = io.ReadAll(os.Stdin)
			} else {
				body, err = os.ReadFile(blockPath)
			}
			if err != nil {
				return fmt.Errorf("read block: %w", err)
			}

			if err := glue.UpdateState(db, cfg, body); err != nil {
				return fmt.Errorf("apply block: %w", err)
			}
			fmt.Println("block applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&blockPath, "file", "", "path to the block JSON document (default: stdin)")
	return cmd
}

func newDumpStateCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "dump-state",
		Short: "Dump the entire entity store as one JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			body, err := glue.GetStateAsJSON(db)
			if err != nil {
				return fmt.Errorf("dump state: %w", err)
			}

			if outPath == "" || outPath == "-" {
				_, err = os.Stdout.Write(append(body, '\n'))
			} else {
				err = os.WriteFile(outPath, body, 0o644)
			}
			if err != nil {
				return fmt.Errorf("write state dump: %w", err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s of state\n", humanize.Bytes(uint64(len(body))))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the dump to (default: stdout)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var requestPath string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one snapshot query against the entity store",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(viper.GetString("db"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			var body []byte
			if requestPath == "" || requestPath == "-" {
				body, err = io.ReadAll(os.Stdin)
			} else {
				body, err = os.ReadFile(requestPath)
			}
			if err != nil {
				return fmt.Errorf("read query request: %w", err)
			}

			result, err := glue.QueryState(db, body)
			if err != nil {
				return fmt.Errorf("query state: %w", err)
			}
			_, err = os.Stdout.Write(append(result, '\n'))
			return err
		},
	}
	cmd.Flags().StringVar(&requestPath, "file", "", "path to the query request JSON document (default: stdin)")
	return cmd
}
