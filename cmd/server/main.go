// Package main is the littlemud server binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/littlemud/littlemud/pkg/boltstore"
	"github.com/littlemud/littlemud/pkg/gamedb"
	"github.com/littlemud/littlemud/pkg/logger"
	"github.com/littlemud/littlemud/pkg/passwords"
	"github.com/littlemud/littlemud/pkg/server"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	serve := newServeCmd()
	rootCmd := &cobra.Command{
		Use:           "littlemud",
		Short:         "A small multi-user text world server",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("LITTLEMUD_CONFIG"),
		"Path to the YAML options file (env: LITTLEMUD_CONFIG)")
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(
		serve,
		newBackupCmd(),
		newRestoreCmd(),
		newPasswdCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}

// loadOptions reads the options file and the environment. Flags are
// applied by the caller.
func loadOptions() (server.GameConf, error) {
	conf, err := server.LoadGameConf(configPath)
	if err != nil {
		return conf, err
	}
	if err := conf.ApplyEnv(); err != nil {
		return conf, err
	}
	return conf, nil
}

// openWorld opens the dump file and loads it into a fresh database.
func openWorld(path string) (*gamedb.Database, *boltstore.Store, error) {
	store, err := boltstore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	db := gamedb.NewDatabase()
	n, err := store.Load(db)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Log.Infof("Loaded %d objects from %s.", n, path)
	return db, store, nil
}

func newServeCmd() *cobra.Command {
	var (
		port       int
		host       string
		dumpFile   string
		logLevel   string
		logFormat  string
		httpAddr   string
		autoLogin  string
		maxConns   int
		noAutosave bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the world and accept connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadOptions()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				conf.Port = port
			}
			if flags.Changed("host") {
				conf.Host = host
			}
			if flags.Changed("dump-file") {
				conf.DumpFile = dumpFile
			}
			if flags.Changed("log-level") {
				conf.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				conf.LogFormat = logFormat
			}
			if flags.Changed("http") {
				conf.HTTPAddr = httpAddr
			}
			if flags.Changed("auto-login") {
				conf.AutoLogin = autoLogin
			}
			if flags.Changed("max-connections") {
				conf.MaxConnections = maxConns
			}
			if noAutosave {
				conf.AutosaveInterval = 0
			}
			if err := conf.Validate(); err != nil {
				return err
			}

			logger.Init(conf.LogLevel, conf.LogFormat)
			logger.Log.Infof("Welcome to %s", server.VersionString())
			if conf.Path != "" {
				logger.Log.Infof("Options loaded from %s.", conf.Path)
			}

			db, store, err := openWorld(conf.DumpFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Log.WithError(err).Error("closing dump file")
				}
			}()

			srv := server.NewServer(server.NewGame(db, store, conf))
			if err := srv.Listen(); err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&port, "port", "p", 0, "Port for line connections")
	f.StringVar(&host, "host", "", "Interface to listen on")
	f.StringVarP(&dumpFile, "dump-file", "d", "", "World dump file")
	f.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&logFormat, "log-format", "", "Log format (text or json)")
	f.StringVar(&httpAddr, "http", "", "Address for /metrics and /ws, empty to disable")
	f.StringVar(&autoLogin, "auto-login", "", "Log every connection in as this username (testing only)")
	f.IntVar(&maxConns, "max-connections", 0, "Connection limit, 0 for none")
	f.BoolVar(&noAutosave, "no-autosave", false, "Disable periodic dumps")
	return cmd
}

func newBackupCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed snapshot of the dump file",
		Long:  "Write a compressed snapshot of the dump file. The server must not be running, since it holds the dump file open.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadOptions()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = conf.BackupDir
			}
			logger.Init(conf.LogLevel, conf.LogFormat)
			store, err := boltstore.Open(conf.DumpFile)
			if err != nil {
				return err
			}
			defer store.Close()
			path, err := store.Backup(dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "o", "", "Directory for the snapshot (default backup_dir)")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "restore <snapshot>",
		Short: "Replace the dump file with a snapshot made by backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadOptions()
			if err != nil {
				return err
			}
			logger.Init(conf.LogLevel, conf.LogFormat)
			if _, err := os.Stat(conf.DumpFile); err == nil {
				if !force {
					return fmt.Errorf("%s exists; use --force to replace it", conf.DumpFile)
				}
				if err := os.Rename(conf.DumpFile, conf.DumpFile+".old"); err != nil {
					return err
				}
				logger.Log.Infof("Moved %s to %s.old.", conf.DumpFile, conf.DumpFile)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := boltstore.Restore(args[0], conf.DumpFile); err != nil {
				return err
			}
			logger.Log.Infof("Restored %s from %s.", conf.DumpFile, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing dump file, keeping it as .old")
	return cmd
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username> [password]",
		Short: "Set a player's password in the dump file",
		Long:  "Set a player's password in the dump file. Without a password argument a random one is generated and printed.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadOptions()
			if err != nil {
				return err
			}
			logger.Init(conf.LogLevel, conf.LogFormat)
			db, store, err := openWorld(conf.DumpFile)
			if err != nil {
				return err
			}
			defer store.Close()

			p := db.PlayerByUID(args[0])
			if p == nil {
				return fmt.Errorf("no player with username %s", args[0])
			}
			secret, generated := "", false
			if len(args) == 2 {
				secret = args[1]
			} else {
				secret, generated = passwords.Random(12), true
			}
			if err := p.SetPassword(secret); err != nil {
				return err
			}
			if _, err := store.Dump(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password for %s updated.\n", p.Title())
			if generated {
				fmt.Fprintf(cmd.OutOrStdout(), "New password: %s\n", secret)
			}
			return nil
		},
	}
}
