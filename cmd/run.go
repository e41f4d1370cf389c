package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"firestige.xyz/pktpeek/internal/config"
	"firestige.xyz/pktpeek/internal/log"
	"firestige.xyz/pktpeek/internal/metrics"
	"firestige.xyz/pktpeek/internal/pipeline"
	"firestige.xyz/pktpeek/internal/render"
	"firestige.xyz/pktpeek/internal/session"
	"firestige.xyz/pktpeek/internal/source"
	"firestige.xyz/pktpeek/internal/tags"
)

// sessionOptions are per-command overrides of the configured session.
type sessionOptions struct {
	stdout io.Writer // forced sink; nil opens the configured one
	start  int       // fixed start offset, negative detects the header
	format string    // overrides output.format when set
}

func sinkConfig(c config.SinkConfig) session.SinkConfig {
	return session.SinkConfig{
		Type:       c.Type,
		Path:       c.Path,
		MaxSizeMB:  c.Rotation.MaxSizeMB,
		MaxBackups: c.Rotation.MaxBackups,
		MaxAgeDays: c.Rotation.MaxAgeDays,
		Compress:   c.Rotation.Compress,
	}
}

// openSession builds a session from the configuration. The returned session
// owns the sink and closes it on Close.
func openSession(ctx context.Context, c *config.GlobalConfig, opts sessionOptions) (*session.Session, error) {
	format := c.Output.Format
	if opts.format != "" {
		format = opts.format
	}
	renderer, err := render.New(format, map[string]any{"indent": c.Output.Indent})
	if err != nil {
		return nil, err
	}

	namer, err := tagNamer(ctx, c)
	if err != nil {
		return nil, err
	}

	var (
		w        io.Writer
		sinkName string
	)
	if opts.stdout != nil {
		// hide Close so the session leaves the caller's writer open
		w, sinkName = struct{ io.Writer }{opts.stdout}, session.SinkStdout
	} else {
		sc := sinkConfig(c.Output.Sink)
		wc, err := session.OpenSink(sc)
		if err != nil {
			return nil, err
		}
		w, sinkName = wc, sc.Name()
	}

	scfg := session.Config{
		SinkName: sinkName,
		Decode:   c.Decode.Options(),
		Renderer: renderer,
		Tags:     namer,
		Limit:    session.LimitConfig{MaxPerTag: c.Session.MaxPerTag, Window: c.Session.Window},
	}
	if opts.start >= 0 {
		start := opts.start
		scfg.Start = &start
	}
	if c.Metrics.Enabled {
		scfg.Observer = metrics.SessionObserver{}
	}

	sess, err := session.Open(w, scfg)
	if err != nil {
		if closer, ok := w.(io.Closer); ok {
			closer.Close()
		}
		return nil, err
	}
	return sess, nil
}

// tagNamer loads the configured tag file. With tags_watch the file is
// followed until ctx ends.
func tagNamer(ctx context.Context, c *config.GlobalConfig) (session.TagNamer, error) {
	if c.TagsFile == "" {
		return nil, nil
	}
	if !c.TagsWatch {
		return tags.Load(c.TagsFile)
	}
	w, err := tags.NewWatcher(c.TagsFile)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			log.GetLogger().WithError(err).Warn("tag file watch stopped")
		}
	}()
	return w, nil
}

// runSession pumps src into a new session until the source ends or the
// process is interrupted.
func runSession(ctx context.Context, c *config.GlobalConfig, src source.Source, opts sessionOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Metrics.Enabled {
		srv := metrics.NewServer(c.Metrics.Listen, c.Metrics.Path)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	sess, err := openSession(ctx, c, opts)
	if err != nil {
		return err
	}

	p, err := pipeline.NewBuilder().WithSource(src).WithSession(sess).Build()
	if err != nil {
		sess.Close()
		return err
	}

	runErr := p.Run(ctx)
	if err := sess.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close session: %w", err)
	}

	st := sess.Stats()
	log.GetLogger().WithFields(map[string]interface{}{
		"session":    sess.ID(),
		"send":       st.Send,
		"recv":       st.Recv,
		"suppressed": st.Suppressed,
	}).Info("session closed")
	return runErr
}

// current returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (tests).
func current() *config.GlobalConfig {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}
