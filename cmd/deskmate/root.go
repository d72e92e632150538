package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/deskmate/internal/config"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// cli holds state shared by every subcommand.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	logOut  io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "deskmate",
		Short: "Desktop assistant driven by text, voice and gestures",
		Long: `Deskmate turns a spoken or typed request into a desktop action using a
language model, runs it, and answers in a friendly voice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd.Context(), c)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logOut != nil {
				c.logOut.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default ./deskmate.yaml or $XDG_CONFIG_HOME/deskmate/deskmate.yaml)")
	pf.Bool("verbose", false, "enable debug logging")
	pf.String("log-file", "", "file to write logs to (\"stderr\" logs to the console)")
	pf.Bool("ephemeral", false, "keep history, notes and workflows in memory only")
	pf.Bool("brief", false, "start in brief reply mode")

	f := root.Flags()
	f.Bool("voice", false, "enable the continuous voice loop")
	f.Bool("gesture", false, "enable the camera gesture loop")
	f.Bool("wakeword", false, "enable the acoustic wakeword detector")
	f.Bool("bus", false, "serve the WebSocket submit bus")

	for name, key := range map[string]string{
		"ephemeral": "storage.ephemeral",
		"brief":     "persona.brief",
		"log-file":  "log_file",
		"voice":     "voice.enabled",
		"gesture":   "gesture.enabled",
		"wakeword":  "wakeword.enabled",
		"bus":       "bus.enabled",
	} {
		flag := pf.Lookup(name)
		if flag == nil {
			flag = f.Lookup(name)
		}
		if err := c.v.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("binding --%s: %v", name, err))
		}
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(c.v, c.cfgFile)
		if err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			cfg.LogLevel = "verbose"
		}
		c.cfg = cfg
		c.log = c.openLog(cmd == root || cmd.Flags().Changed("log-file"))
		c.log.Debug("config: loaded (file=%q provider=%s)", c.v.ConfigFileUsed(), cfg.LLM.Provider)
		return nil
	}

	root.AddCommand(newOnceCmd(c), newGestureCmd(c))
	return root
}

// openLog builds the logger. The console owns the terminal, so it logs
// to the configured file; other commands log to stderr unless
// --log-file is given.
func (c *cli) openLog(toFile bool) *logger.Logger {
	level := logger.ParseLevel(c.cfg.LogLevel)

	var out io.Writer = os.Stderr
	path := c.cfg.LogFile
	if !toFile {
		path = "stderr"
	}
	if path != "" && path != "stderr" {
		if dir := filepath.Dir(path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		} else {
			out = f
			c.logOut = f
		}
	}

	// Third-party libraries log through the standard logger.
	stdlog.SetOutput(out)
	stdlog.SetFlags(stdlog.Ltime)

	return logger.New(level, out)
}
