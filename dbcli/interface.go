package dbcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"diskbtree/btree"
	"diskbtree/cache"
	"diskbtree/database"
	"diskbtree/server"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootDir    string
	logLevel   string
	cacheSize  int
	syncWrites bool
	listenAddr string
)

// RootCmd is the root command for the CLI.
var RootCmd = &cobra.Command{
	Use:          "dbcli",
	Short:        "CLI for managing disk-backed B-tree databases",
	Long:         "A command line interface for creating databases and collections and for reading and writing keys in them.",
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *zap.Logger {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(cmd.ErrOrStderr()),
		level,
	)
	return zap.New(core)
}

func treeOptions(logger *zap.Logger) []btree.Option {
	return []btree.Option{
		btree.WithCacheSize(cacheSize),
		btree.WithSyncWrites(syncWrites),
		btree.WithLogger(logger),
	}
}

func openDB(cmd *cobra.Command, dbID string) (*database.Database, error) {
	db, err := database.LoadDatabase(filepath.Join(rootDir, dbID), treeOptions(newLogger(cmd))...)
	if err != nil {
		return nil, fmt.Errorf("error loading database '%s': %w", dbID, err)
	}
	return db, nil
}

func withCollection(cmd *cobra.Command, dbID, name string, fn func(*database.Collection) error) error {
	db, err := openDB(cmd, dbID)
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := db.GetCollection(name)
	if err != nil {
		return fmt.Errorf("error getting collection '%s': %w", name, err)
	}
	return fn(coll)
}

var createDBCmd = &cobra.Command{
	Use:   "create-db [dbID]",
	Short: "Create a new database, generating an ID when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var dbID string
		if len(args) == 1 {
			dbID = args[0]
		} else {
			dbID = "db_" + strings.Split(uuid.NewString(), "-")[0]
		}

		db, err := database.NewDatabase(filepath.Join(rootDir, dbID), dbID)
		if err != nil {
			return fmt.Errorf("error creating database: %w", err)
		}
		if err := db.Close(); err != nil {
			return fmt.Errorf("error closing database: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Database ID:", dbID)
		return nil
	},
}

var listDBsCmd = &cobra.Command{
	Use:   "list-dbs",
	Short: "List the databases under the root directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := database.ListDatabases(rootDir)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var createCollectionCmd = &cobra.Command{
	Use:   "create-collection [dbID] [name] [capacity]",
	Short: "Create a new collection in the specified database",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbID, name := args[0], args[1]
		capacity, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid capacity '%s': %w", args[2], err)
		}

		db, err := openDB(cmd, dbID)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := db.CreateCollection(name, capacity); err != nil {
			return fmt.Errorf("error creating collection: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Collection '%s' created in database '%s'.\n", name, dbID)
		return nil
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert [dbID] [collection] [key] [value]",
	Short: "Insert or overwrite a key in a collection",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[2], args[3]
		return withCollection(cmd, args[0], args[1], func(coll *database.Collection) error {
			prev, existed, err := coll.Set(key, value)
			if err != nil {
				return err
			}
			if existed {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated key '%s' (previous value '%s').\n", key, prev)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Inserted key '%s'.\n", key)
			}
			return nil
		})
	},
}

var findKeyCmd = &cobra.Command{
	Use:   "find [dbID] [collection] [key]",
	Short: "Find a key in a collection",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[2]
		return withCollection(cmd, args[0], args[1], func(coll *database.Collection) error {
			value, found, err := coll.Get(key)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("key not found: %s", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [dbID] [collection]",
	Short: "Show the shape of a collection's tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(cmd, args[0], args[1], func(coll *database.Collection) error {
			st, err := coll.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "capacity: %d\n", st.Capacity)
			fmt.Fprintf(out, "height:   %d\n", st.Height)
			fmt.Fprintf(out, "nodes:    %d\n", st.Nodes)
			fmt.Fprintf(out, "keys:     %d\n", st.Keys)
			return nil
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [dbID] [collection]",
	Short: "Verify the structure of a collection's tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollection(cmd, args[0], args[1], func(coll *database.Collection) error {
			if err := coll.Check(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the databases under the root directory over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		defer logger.Sync()
		srv := server.New(rootDir, logger, treeOptions(logger)...)
		defer srv.Close()

		logger.Info("listening", zap.String("addr", listenAddr), zap.String("root", rootDir))
		return srv.Listen(listenAddr)
	},
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&rootDir, "root", filepath.Join(".", "files"), "directory holding the databases")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.IntVar(&cacheSize, "cache-size", cache.DefaultSize, "number of non-root nodes kept in memory per collection")
	flags.BoolVar(&syncWrites, "sync", false, "fsync every node write")
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":3000", "address to listen on")

	RootCmd.AddCommand(createDBCmd)
	RootCmd.AddCommand(listDBsCmd)
	RootCmd.AddCommand(createCollectionCmd)
	RootCmd.AddCommand(insertCmd)
	RootCmd.AddCommand(findKeyCmd)
	RootCmd.AddCommand(statsCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(serveCmd)
}
