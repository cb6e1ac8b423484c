package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind              string
	countdownTicks    int
	databaseURL       string
	gracePeriod       time.Duration
	heartbeatInterval time.Duration
	matchGuardMargin  time.Duration
	port              int
	prefix            string
	profile           bool
	redisURL          string
	roundLength       time.Duration
	sessionTimeout    time.Duration
	tlsCert           string
	tlsKey            string
	verbose           bool
	version           bool
	wordlist          string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.countdownTicks < 1 {
		return fmt.Errorf("invalid countdown tick count: %d", c.countdownTicks)
	}
	if c.roundLength < time.Second {
		return fmt.Errorf("round length too short: %s", c.roundLength)
	}
	if c.gracePeriod < time.Second {
		return fmt.Errorf("grace period too short: %s", c.gracePeriod)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WORDDUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wordduel",
		Short:         "A head-to-head timed word duel server, with optional item wagers.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: WORDDUEL_BIND)")
	fs.IntVar(&cfg.countdownTicks, "countdown", 3, "seconds counted down before play starts or resumes (env: WORDDUEL_COUNTDOWN)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres url for the item inventory store; in-memory when empty (env: WORDDUEL_DATABASE_URL)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 30*time.Second, "time a disconnected player may reconnect before forfeiting (env: WORDDUEL_GRACE_PERIOD)")
	fs.DurationVar(&cfg.heartbeatInterval, "heartbeat-interval", 30*time.Second, "interval between liveness probes on each connection (env: WORDDUEL_HEARTBEAT_INTERVAL)")
	fs.DurationVar(&cfg.matchGuardMargin, "match-guard-margin", 15*time.Second, "slack past round length before a stuck match is force-finished (env: WORDDUEL_MATCH_GUARD_MARGIN)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: WORDDUEL_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WORDDUEL_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WORDDUEL_PROFILE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis url for the leaderboard store; in-memory when empty (env: WORDDUEL_REDIS_URL)")
	fs.DurationVar(&cfg.roundLength, "round-length", 180*time.Second, "length of one word-collection round (env: WORDDUEL_ROUND_LENGTH)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before abandoned sessions are reaped (env: WORDDUEL_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WORDDUEL_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WORDDUEL_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WORDDUEL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WORDDUEL_VERSION)")
	fs.StringVar(&cfg.wordlist, "wordlist", "", "path to a newline-delimited word list; all words accepted when empty (env: WORDDUEL_WORDLIST)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wordduel v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
