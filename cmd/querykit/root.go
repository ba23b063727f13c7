package main

import (
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Konsultn-Engineering/querykit/connector"
)

type (
	Cmd struct {
		rootCmd   *cobra.Command
		version   string
		rootFlags rootFlags
		pingFlags pingFlags
	}

	rootFlags struct {
		cfgFile   string
		debugMode bool
	}
)

func New() *Cmd {
	return &Cmd{}
}

func (c *Cmd) Execute() {
	c.version = "devel"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		c.version = info.Main.Version
	}
	rootCmd := &cobra.Command{
		Use:   "querykit",
		Short: "Connectivity checks for querykit databases",
		Long: `Connectivity checks for the PostgreSQL database a querykit application
is configured against. The configuration is read the same way the
application reads it.`,
		Version:           c.version,
		PersistentPreRun:  c.initConfig,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	rootCmd.PersistentFlags().StringVar(&c.rootFlags.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/.querykit.yaml)")
	rootCmd.PersistentFlags().BoolVar(&c.rootFlags.debugMode, "debug", false, "turn on debug output")
	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.getPingCmd())
	rootCmd.AddCommand(c.getStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func (c *Cmd) initConfig(cmd *cobra.Command, args []string) {
	if c.rootFlags.cfgFile != "" {
		viper.SetConfigFile(c.rootFlags.cfgFile)
	} else {
		viper.SetConfigName(".querykit")
		viper.AddConfigPath(".")
		if cfgdir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(cfgdir)
		}
	}

	setDefaults(viper.GetViper(), connector.DefaultConfig())
	viper.SetEnvPrefix("QUERYKIT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	configErr := viper.ReadInConfig()
	if c.rootFlags.debugMode {
		if configErr == nil {
			log.Printf("Using config file: %s\n", viper.ConfigFileUsed())
		} else {
			log.Printf("Failed reading config file: %v\n", configErr)
		}
	}
}

// setDefaults registers every config key so that environment variables
// can override keys absent from the config file.
func setDefaults(v *viper.Viper, d connector.Config) {
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("database", d.Database)
	v.SetDefault("username", d.Username)
	v.SetDefault("password", d.Password)
	v.SetDefault("ssl_mode", d.SSLMode)
	v.SetDefault("schema", d.Schema)
	v.SetDefault("driver", string(d.Driver))
	v.SetDefault("statement_cache_size", d.StatementCacheSize)
	v.SetDefault("pool.max_open", d.Pool.MaxOpen)
	v.SetDefault("pool.max_idle", d.Pool.MaxIdle)
	v.SetDefault("pool.max_lifetime", d.Pool.MaxLifetime)
	v.SetDefault("pool.max_idle_time", d.Pool.MaxIdleTime)
	v.SetDefault("pool.health_check_freq", d.Pool.HealthCheckFreq)
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("query_timeout", d.QueryTimeout)
	v.SetDefault("log.log_sql", d.Log.LogSQL)
	v.SetDefault("log.log_args", d.Log.LogArgs)
	v.SetDefault("log.slow_query", d.Log.SlowQuery)
	v.SetDefault("log.max_sql_len", d.Log.MaxSQLLen)
}

func (c *Cmd) readConfig() (connector.Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (connector.Config, error) {
	var cfg connector.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return connector.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

func (c *Cmd) logDebug(format string, args ...any) {
	if c.rootFlags.debugMode {
		log.Printf(format, args...)
	}
}
