// Command voicedrop is a hotkey dictation tool: press a global shortcut,
// speak, press it again, and the transcribed text lands in the clipboard.
package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voicedrop/voicedrop/audiocapture"
	"github.com/voicedrop/voicedrop/clipboard"
	"github.com/voicedrop/voicedrop/config"
	"github.com/voicedrop/voicedrop/history"
	"github.com/voicedrop/voicedrop/internal/app"
	"github.com/voicedrop/voicedrop/notify"
	"github.com/voicedrop/voicedrop/shortcut"
	"github.com/voicedrop/voicedrop/stt"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "voicedrop",
	Short: "Voice-to-clipboard dictation on a global hotkey",
	Long: `VoiceDrop turns speech into text: press the shortcut, talk, press it
again. The capture is transcribed remotely and the result lands in the
clipboard, ready to paste anywhere.`,
	SilenceUsage: true,
	RunE:         runEngine,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE:  runDevices,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Transcribe a WAV file and print the text",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transcriptions",
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("voicedrop %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	cobra.OnInitialize(initRuntime)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.json (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("api-key", "", "OpenRouter API key")
	rootCmd.PersistentFlags().String("model", "", "transcription model")
	rootCmd.PersistentFlags().String("provider", "", "transcription provider (openrouter, whisper)")
	rootCmd.PersistentFlags().String("device", "", "audio input device name")
	rootCmd.PersistentFlags().String("whisper-url", "", "self-hosted whisper server endpoint")

	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("audio_device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("whisper_url", rootCmd.PersistentFlags().Lookup("whisper-url"))

	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// initRuntime installs the log handler and wires environment overrides.
// Runs after flag parsing, before any command body.
func initRuntime() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	viper.SetEnvPrefix("VOICEDROP")
	viper.AutomaticEnv()
}

// loadConfig reads the config file and layers flag/env overrides on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFrom(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"api_key":      &cfg.APIKey,
		"model":        &cfg.Model,
		"provider":     &cfg.Provider,
		"audio_device": &cfg.AudioDevice,
		"whisper_url":  &cfg.WhisperURL,
	}
	for key, dst := range overrides {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	return cfg, nil
}

func newRegistry(cfg *config.Config) *stt.Registry {
	providers := stt.NewRegistry()
	providers.Register(stt.NewOpenRouter())
	providers.Register(stt.NewWhisper(cfg.WhisperURL))
	return providers
}

func openHistory() (*history.Store, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	return history.Open(filepath.Join(dir, "history"))
}

// logEvent is the engine's event sink. The service logs the interesting
// transitions itself, so events only show up at debug level.
func logEvent(name string, data any) {
	if data == nil {
		slog.Debug("lifecycle event", "event", name)
		return
	}
	slog.Debug("lifecycle event", "event", name, "data", data)
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	host, err := audiocapture.NewPortAudioHost()
	if err != nil {
		return fmt.Errorf("initialize audio backend: %w", err)
	}
	defer host.Close()
	recorder := audiocapture.NewRecorder(host)

	hookHost := shortcut.NewGohookHost()
	defer hookHost.Close()
	binder := shortcut.NewBinder(hookHost)

	hooks := app.Hooks{
		Clipboard: clipboard.SetText,
		Notifier:  notify.New(cfg.Notifications),
	}
	if cfg.HistoryEnabled {
		store, err := openHistory()
		if err != nil {
			slog.Warn("history disabled", "error", err)
		} else {
			hooks.History = store
			defer store.Close()
		}
	}

	service := app.New(cfg, recorder, binder, newRegistry(cfg), logEvent, hooks)
	if err := service.Init(); err != nil {
		return err
	}
	defer service.Shutdown()

	slog.Info("voicedrop ready",
		"version", version,
		"shortcut", service.Shortcut(),
		"provider", cfg.Provider,
		"model", cfg.Model)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	sig := <-sigc
	slog.Info("shutting down", "signal", sig.String())
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	host, err := audiocapture.NewPortAudioHost()
	if err != nil {
		return fmt.Errorf("initialize audio backend: %w", err)
	}
	defer host.Close()

	devices := audiocapture.NewRecorder(host).Devices()
	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return nil
	}

	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %-40s %6.0f Hz  %d ch\n", marker, d.Name, d.SampleRate, d.Channels)
	}
	return nil
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	provider, err := newRegistry(cfg).Get(cfg.Provider)
	if err != nil {
		return err
	}

	text, err := provider.Transcribe(cmd.Context(), stt.Request{
		AudioBase64: base64.StdEncoding.EncodeToString(data),
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
	})
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	fmt.Println(text)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no transcriptions yet")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %s  (%s)\n  %s\n",
			rec.CreatedAt.Format(time.DateTime),
			rec.Model,
			rec.Duration.Round(100*time.Millisecond),
			rec.Text)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
