package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/c4vxl/Agora/agora"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = agora.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "agora [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					levelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func levelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}
		if t.Elem() != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvlVar := &slog.LevelVar{}
		if err := lvlVar.UnmarshalText([]byte(data.(string))); err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("storage_dir", agora.DefaultStorageDir)
	viper.SetDefault("storage_pretty_print", agora.DefaultStoragePrettyPrint)
	viper.SetDefault("flush_interval", agora.DefaultFlushInterval)
	viper.SetDefault("shutdown_timeout", agora.DefaultShutdownTimeout)
	viper.SetDefault("log_level", agora.DefaultLogLevel.String())

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.gateway_intents", agora.DefaultDiscordGatewayIntent)
	viper.SetDefault("discord.log_level", agora.DefaultDiscordLogLevel.String())
	viper.SetDefault(
		"discord.discordgo_log_level",
		agora.DefaultDiscordgoLogLevel.String(),
	)

	// BeReal defaults (per-guild overrides live in the guild document)
	viper.SetDefault("be_real.triggers_per_day", agora.DefaultBeRealTriggersPerDay)
	viper.SetDefault("be_real.window_start", agora.DefaultBeRealWindowStart)
	viper.SetDefault("be_real.window_end", agora.DefaultBeRealWindowEnd)
	viper.SetDefault(
		"be_real.collection_window",
		agora.DefaultBeRealCollectionWindow,
	)

	// Admin API
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.listen", agora.DefaultAPIListen)
	viper.SetDefault("api.log_level", agora.DefaultAPILogLevel.String())

	envPrefix := os.Getenv(agora.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = agora.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

//nolint:gochecknoinits
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Env file to use",
	)
}
