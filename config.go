/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind       string
	objects    string
	port       int
	prefix     string
	profile    bool
	sendBuffer int
	tlsCert    string
	tlsKey     string
	verbose    bool
	version    bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sendBuffer < 1 {
		return fmt.Errorf("invalid send buffer (must be at least 1): %d", c.sendBuffer)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// layout returns the objects the board starts with.
func (c *Config) layout() ([]SharedObject, error) {
	if c.objects == "" {
		return defaultObjects(), nil
	}
	return loadLayout(c.objects)
}

// BotConfig drives the headless client started by "cursorbox bot".
type BotConfig struct {
	count        int
	duration     time.Duration
	frameRate    int
	room         string
	sendInterval time.Duration
	url          string
	username     string
}

func (c *BotConfig) validate() error {
	if c.count < 1 {
		return fmt.Errorf("invalid count (must be at least 1): %d", c.count)
	}
	if c.sendInterval <= 0 {
		return fmt.Errorf("invalid send interval (must be positive): %s", c.sendInterval)
	}
	if c.frameRate < 1 {
		return fmt.Errorf("invalid frame rate (must be at least 1): %d", c.frameRate)
	}
	if c.duration < 0 {
		return fmt.Errorf("invalid duration (must not be negative): %s", c.duration)
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.url, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid url scheme (must be ws or wss): %q", u.Scheme)
	}

	if c.room == "" {
		c.room = "global"
	}
	if c.username == "" {
		c.username = "Anonymous"
	}
	return nil
}

// bindFlags lets every flag in fs fall back to its CURSORBOX_ environment
// variable when not given on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newBotCmd(v *viper.Viper, cfg *Config, bot *BotConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Join a room with simulated users that move and drag objects.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bot.validate(); err != nil {
				return err
			}
			return runBots(cmd.Context(), cfg, bot)
		},
	}

	fs := cmd.Flags()

	fs.IntVarP(&bot.count, "count", "c", 1, "number of simulated users (env: CURSORBOX_COUNT)")
	fs.DurationVarP(&bot.duration, "duration", "d", 0, "stop after this long, 0 runs until interrupted (env: CURSORBOX_DURATION)")
	fs.IntVar(&bot.frameRate, "frame-rate", 60, "interpolation steps per second (env: CURSORBOX_FRAME_RATE)")
	fs.StringVarP(&bot.room, "room", "r", "global", "room to join (env: CURSORBOX_ROOM)")
	fs.DurationVar(&bot.sendInterval, "send-interval", 50*time.Millisecond, "minimum time between sends of one event kind (env: CURSORBOX_SEND_INTERVAL)")
	fs.StringVarP(&bot.url, "url", "u", "ws://127.0.0.1:8080/ws", "websocket endpoint of the server (env: CURSORBOX_URL)")
	fs.StringVarP(&bot.username, "username", "n", "Anonymous", "display name, suffixed per user when count > 1 (env: CURSORBOX_USERNAME)")

	bindFlags(v, fs)

	return cmd
}

func newCmd(cfg *Config, bot *BotConfig) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CURSORBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cursorbox",
		Short:         "Shared cursors and draggable objects, synchronized across rooms.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CURSORBOX_BIND)")
	fs.StringVarP(&cfg.objects, "objects", "o", "", "toml file describing the shared objects (env: CURSORBOX_OBJECTS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CURSORBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CURSORBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CURSORBOX_PROFILE)")
	fs.IntVar(&cfg.sendBuffer, "send-buffer", 256, "messages queued per connection before it is dropped (env: CURSORBOX_SEND_BUFFER)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CURSORBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CURSORBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CURSORBOX_VERSION)")

	pfs := cmd.PersistentFlags()
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CURSORBOX_VERBOSE)")

	bindFlags(v, fs)
	bindFlags(v, pfs)

	cmd.AddCommand(newBotCmd(v, cfg, bot))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cursorbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
