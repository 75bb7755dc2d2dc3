package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/muhandis-ai/muhandis/internal/profile"
	"github.com/muhandis-ai/muhandis/plugin/generator"
	"github.com/muhandis-ai/muhandis/server"
	"github.com/muhandis-ai/muhandis/session"
	"github.com/muhandis-ai/muhandis/store"
	"github.com/muhandis-ai/muhandis/store/db"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "muhandis",
	Short: "An AI chat assistant service",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile, err := loadProfile()
		if err != nil {
			slog.Error("failed to load profile", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			os.Exit(1)
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		defer storeInstance.Close()

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, slog.Default())
		if err != nil {
			slog.Error("failed to create server", "error", err)
			os.Exit(1)
		}

		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			cancel()
		}()

		if err := s.Start(ctx); err != nil {
			slog.Error("server exited with error", "error", err)
			os.Exit(1)
		}
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a local chat session in the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile, err := loadProfile()
		if err != nil {
			slog.Error("failed to load profile", "error", err)
			os.Exit(1)
		}

		producer, err := generator.New(instanceProfile)
		if err != nil {
			slog.Error("failed to create producer", "error", err)
			os.Exit(1)
		}

		sessionStore := session.New(session.Options{
			Producer:     producer,
			Model:        instanceProfile.AIModel,
			Temperature:  instanceProfile.AITemperature,
			SnapshotPath: filepath.Join(instanceProfile.Data, "session.json"),
		})
		defer sessionStore.Close()

		runREPL(sessionStore)
	},
}

// runREPL reads lines from stdin and streams replies to stdout.
func runREPL(s *session.Store) {
	fmt.Println("muhandis chat. Type a message, /new for a new thread, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return
		case line == "/new":
			s.CreateThread(s.Mode())
			fmt.Println("started a new thread")
			continue
		case line == "/threads":
			for _, t := range s.Threads() {
				fmt.Printf("  %s  %s\n", t.ID[:8], t.Title)
			}
			continue
		}

		if err := s.SendMessage(line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}

		printed := 0
		for {
			time.Sleep(50 * time.Millisecond)
			msgs := s.ActiveMessages()
			if len(msgs) == 0 {
				break
			}
			last := msgs[len(msgs)-1]
			if last.Role == session.RoleAssistant {
				fmt.Print(last.Content[printed:])
				printed = len(last.Content)
				if !last.IsStreaming {
					if last.Error != "" {
						fmt.Fprintln(os.Stderr, "\ngeneration failed:", last.Error)
					}
					break
				}
			} else if !s.IsGenerating() {
				break
			}
		}
		fmt.Println()
	}
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:          viper.GetString("mode"),
		Addr:          viper.GetString("addr"),
		Port:          viper.GetInt("port"),
		Data:          viper.GetString("data"),
		Driver:        viper.GetString("driver"),
		DSN:           viper.GetString("dsn"),
		InstanceURL:   viper.GetString("instance-url"),
		Secret:        viper.GetString("secret"),
		AccessKeyHash: viper.GetString("access-key-hash"),
		Version:       version,
		AIEnabled:     viper.GetBool("ai-enabled"),
		AIProvider:    viper.GetString("ai-provider"),
		AIAPIKey:      viper.GetString("ai-api-key"),
		AIBaseURL:     viper.GetString("ai-base-url"),
		AIModel:       viper.GetString("ai-model"),
		AITemperature: viper.GetFloat64("ai-temperature"),
	}
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your muhandis instance")
	rootCmd.PersistentFlags().String("secret", "muhandis", "secret used to sign access tokens")
	rootCmd.PersistentFlags().String("access-key-hash", "", "bcrypt hash of the shared access key")
	rootCmd.PersistentFlags().Bool("ai-enabled", false, "enable AI generation")
	rootCmd.PersistentFlags().String("ai-provider", "", "AI provider (openai, deepseek, scripted)")
	rootCmd.PersistentFlags().String("ai-api-key", "", "AI provider API key")
	rootCmd.PersistentFlags().String("ai-base-url", "", "AI provider base URL")
	rootCmd.PersistentFlags().String("ai-model", "", "AI model name")
	rootCmd.PersistentFlags().Float64("ai-temperature", 0.7, "AI sampling temperature")

	for _, flag := range []string{
		"mode", "addr", "port", "data", "driver", "dsn", "instance-url",
		"secret", "access-key-hash", "ai-enabled", "ai-provider",
		"ai-api-key", "ai-base-url", "ai-model", "ai-temperature",
	} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("muhandis")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
