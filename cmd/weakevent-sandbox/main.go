package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-weakevent"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type cli struct {
	Config     string        `help:"YAML or JSON file with manager settings. WEAKEVENT_* variables override it." type:"path"`
	Publishers int           `help:"Publishers created per round." default:"100"`
	Listeners  int           `help:"Listeners subscribed to each publisher." default:"10"`
	Rounds     int           `help:"Rounds to run, 0 runs until interrupted." default:"3"`
	Every      time.Duration `help:"Interval between rounds." default:"1s"`
	LogLevel   string        `help:"Log level." default:"info" enum:"trace,debug,info,warn,error"`
	LogFormat  string        `help:"Log output format." default:"json" enum:"json,text"`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("weakevent-sandbox"),
		kong.Description("Subscribe short lived listeners to publishers and check they detach once collected."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(run(c))
}

func run(c cli) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stdout, c.LogFormat, c.LogLevel)
	if err != nil {
		return err
	}
	sb, err := newSandbox(c.Publishers, c.Listeners, logger, weakevent.WithConfig(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	done := make(chan struct{})
	var once sync.Once

	sched := cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)
	_, err = sched.AddFunc("@every "+c.Every.String(), func() {
		st := sb.runRound()
		report(logger, runID, st)
		if c.Rounds > 0 && st.Round >= c.Rounds {
			once.Do(func() { close(done) })
		}
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "schedule sandbox rounds").
			WithTextCode("INVALID_INTERVAL")
	}

	logger.Info("sandbox started: %d publishers x %d listeners every %s", c.Publishers, c.Listeners, c.Every)
	sched.Start()

	select {
	case <-ctx.Done():
	case <-done:
	}
	<-sched.Stop().Done()
	return nil
}

func loadConfig(path string) (weakevent.Config, error) {
	cfg := weakevent.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, errors.CategoryBadInput, "read config file").
				WithTextCode("CONFIG_READ_FAILED").
				WithMetadata(map[string]any{"path": path})
		}
		if cfg, err = weakevent.ParseConfig(data); err != nil {
			return cfg, err
		}
	}
	return cfg.ApplyEnv()
}

func report(logger weakevent.Logger, runID string, st stats) {
	if fl, ok := logger.(weakevent.FieldsLogger); ok {
		logger = fl.WithFields(map[string]any{
			"run_id":          runID,
			"round":           st.Round,
			"subscribed":      st.Subscribed,
			"forwarded":       st.Forwarded,
			"tallied":         st.Tallied,
			"attached_before": st.AttachedBefore,
			"attached_after":  st.AttachedAfter,
		})
	}
	logger.Info("round %d finished", st.Round)
	if st.Errors > 0 {
		logger.Error("round %d had %d failed subscriptions", st.Round, st.Errors)
	}
	if st.AttachedAfter > 0 {
		logger.Warn("%d subscriptions outlived their listeners", st.AttachedAfter)
	}
}
