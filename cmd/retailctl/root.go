package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"retail-dashboard/internal/assistant"
	"retail-dashboard/internal/config"
	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/handlers"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

// settings is the effective configuration.
// Precedence: flags > RETAIL_* env > config file > defaults.
type settings struct {
	CSVFile       string        `mapstructure:"csv_file"`
	CacheDir      string        `mapstructure:"cache_dir"`
	AssistantMode string        `mapstructure:"assistant_mode"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Debug         bool          `mapstructure:"debug"`
}

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     settings
	out     io.Writer
	logger  *slog.Logger

	start      string
	end        string
	categories []string
	malls      []string
	genders    []string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "retailctl",
		Short:         "Query the retail transactions dataset from the command line",
		Long:          `retailctl loads the same CSV the dashboard serves and prints KPIs, answers questions or exports the filtered rows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd, errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml)")
	pf.String("csv", "customer_shopping_data.csv", "transactions CSV file")
	pf.String("cache-dir", "", "directory for the parsed snapshot cache")
	pf.Bool("debug", false, "enable debug logging")
	pf.StringVar(&a.start, "start", "", "first invoice date, YYYY-MM-DD")
	pf.StringVar(&a.end, "end", "", "last invoice date, YYYY-MM-DD")
	pf.StringSliceVar(&a.categories, "category", nil, "categories to include (default all)")
	pf.StringSliceVar(&a.malls, "mall", nil, "shopping malls to include (default all)")
	pf.StringSliceVar(&a.genders, "gender", nil, "genders to include (default all)")

	_ = a.v.BindPFlag("csv_file", pf.Lookup("csv"))
	_ = a.v.BindPFlag("cache_dir", pf.Lookup("cache-dir"))
	_ = a.v.BindPFlag("debug", pf.Lookup("debug"))

	root.AddCommand(newKPIsCmd(a), newAskCmd(a), newExportCmd(a))
	return root
}

func (a *app) loadConfig(cmd *cobra.Command, errOut io.Writer) error {
	v := a.v
	v.SetEnvPrefix("RETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", "RETAIL_API_KEY", "OPENAI_API_KEY")

	v.SetDefault("assistant_mode", assistant.ModeRules)
	v.SetDefault("base_url", assistant.DefaultBaseURL)
	v.SetDefault("model", assistant.DefaultModel)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("temperature", assistant.DefaultTemperature)
	v.SetDefault("max_tokens", assistant.DefaultMaxTokens)

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}

	if err := v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	// stdout carries command output, so logs go to errOut.
	logCfg := config.LoggerConfig{Level: "warn", Format: "text"}
	if a.cfg.Debug {
		logCfg.Level = "debug"
	}
	a.logger = observability.NewLoggerTo(errOut, logCfg)
	return nil
}

// filtered loads the dataset and applies the filter flags. A filter flag
// that is never given selects its whole domain; --category= selects nothing.
func (a *app) filtered(ctx context.Context, cmd *cobra.Command) (base, view *dataset.Table, err error) {
	var opts []dataset.Option
	opts = append(opts, dataset.WithLogger(a.logger))
	if a.cfg.CacheDir != "" {
		opts = append(opts, dataset.WithCacheDir(a.cfg.CacheDir))
	}

	base, err = dataset.NewLoader(a.cfg.CSVFile, opts...).Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	signals := handlers.FilterSignals{Start: a.start, End: a.end}
	if flags.Changed("category") {
		signals.Categories = nonNil(a.categories)
	}
	if flags.Changed("mall") {
		signals.Malls = nonNil(a.malls)
	}
	if flags.Changed("gender") {
		signals.Genders = nonNil(a.genders)
	}

	f, err := signals.Filter(base)
	if err != nil {
		return nil, nil, err
	}
	return base, services.Apply(base, f), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
