package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/drivers"
	"github.com/nerrad567/graydb/internal/infrastructure/config"
	"github.com/nerrad567/graydb/internal/infrastructure/logging"
)

// execOutput is printed by exec as JSON.
type execOutput struct {
	Rows         []database.Row `json:"rows,omitempty"`
	LastInsertID string         `json:"last_insert_id,omitempty"`
}

func execCmd(configPath *string) *cobra.Command {
	var (
		driverName string
		write      bool
		params     []string
	)

	cmd := &cobra.Command{
		Use:   "exec SQL",
		Short: "Run one statement against a configured database and print the result as JSON",
		Example: `  graydb exec --driver sqlite "SELECT * FROM users WHERE id = :id" --param id=1
  graydb exec --driver pgsql --write "INSERT INTO users (name) VALUES (?)" --param 0=ada`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			dbCfg, ok := cfg.Databases[driverName]
			if !ok {
				return fmt.Errorf("no databases.%s section in %s", driverName, *configPath)
			}
			drv, err := drivers.Lookup(driverName)
			if err != nil {
				return err
			}
			bound, err := parseParams(params)
			if err != nil {
				return err
			}

			// Keep stdout for the result.
			logCfg := cfg.Logging
			if logCfg.Output == "stdout" {
				logCfg.Output = "stderr"
			}
			log := logging.New(logCfg, version)
			defer log.Close() //nolint:errcheck // nothing useful to do with a close error at exit

			ctx := cmd.Context()
			s, err := database.Open(ctx, drv, dbCfg.SessionConfig(),
				database.WithLogger(log),
				database.WithVerbDetection(cfg.Observer.VerbDetection),
			)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck // read-only after the statement

			var out execOutput
			if write {
				if err := s.Write(ctx, database.NewQuery(args[0], bound)); err != nil {
					return err
				}
				if out.LastInsertID, err = s.LastInsertID(ctx); err != nil {
					log.Warn("last insert id unavailable", "error", err)
				}
			} else if err := s.Read(ctx, args[0], bound); err != nil {
				return err
			}
			// Writes with RETURNING/OUTPUT leave rows too.
			if rows, err := s.Result(); err == nil {
				out.Rows = rows
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&driverName, "driver", drivers.NameSQLite, "Driver name: "+strings.Join(drivers.Names(), ", "))
	cmd.Flags().BoolVar(&write, "write", false, "Execute as a write and report the last insert id")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Statement parameter as key=value; decimal keys are positional (repeatable)")
	return cmd
}

// parseParams converts key=value flags into statement parameters.
// Values are bound as strings.
func parseParams(raw []string) (database.Params, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(database.Params, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}
