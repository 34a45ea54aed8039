package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/pior/beanstalk"
)

type commandContext struct {
	configFlag *string
	addrFlag   *string

	configOnce sync.Once
	config     cliConfig
	configErr  error
}

func newCommandContext(configFlag, addrFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		addrFlag:   addrFlag,
	}
}

func (c *commandContext) ensureConfig() (cliConfig, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		cfg, err := loadConfig(path, path != "")
		if err != nil {
			c.configErr = err
			return
		}
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			cfg.Addr = addr
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withConn dials the server, runs fn and closes the connection.
func (c *commandContext) withConn(cmd *cobra.Command, fn func(conn *beanstalk.Conn) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	connCfg, err := cfg.beanstalkConfig()
	if err != nil {
		return err
	}

	conn, err := beanstalk.Dial(cmd.Context(), cfg.Addr, connCfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var addrFlag string

	ctx := newCommandContext(&configFlag, &addrFlag)

	rootCmd := &cobra.Command{
		Use:           "beanstalk-cli",
		Short:         "Command line client for beanstalkd",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringVarP(&addrFlag, "addr", "a", "", "Server address, host:port")

	rootCmd.AddCommand(newPutCommand(ctx))
	rootCmd.AddCommand(newReserveCommand(ctx))
	rootCmd.AddCommand(newPeekCommand(ctx))
	rootCmd.AddCommand(newKickCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newBuryCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newTubesCommand(ctx))

	return rootCmd
}
