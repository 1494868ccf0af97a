package main

import (
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/cKohl10/TactileSim/config"
	"github.com/cKohl10/TactileSim/panel"
	"github.com/cKohl10/TactileSim/ros"
	"github.com/cKohl10/TactileSim/stage"
	"github.com/cKohl10/TactileSim/tactile"
)

// refreshInterval bounds how often the readings table is redrawn.
const refreshInterval = time.Second

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if c.IsSet(flagConfig) {
		var err error
		if cfg, err = config.Load(c.String(flagConfig)); err != nil {
			return cfg, err
		}
	}
	if c.IsSet(flagSensors) {
		cfg.SensorFile = c.String(flagSensors)
	}
	if c.IsSet(flagStage) {
		cfg.StageFile = c.String(flagStage)
	}
	if c.IsSet(flagHz) {
		cfg.PhysicsHz = c.Float64(flagHz)
	}
	if c.IsSet(flagWatch) {
		cfg.Watch = c.Bool(flagWatch)
	}
	if c.IsSet(flagROS) {
		cfg.ROS.Enabled = c.Bool(flagROS)
	}
	if c.Bool(flagDebug) {
		cfg.LogLevel = "debug"
	}
	if cfg.SensorFile == "" {
		return cfg, errors.New("no sensor table given; set sensor_file or --sensors")
	}
	return cfg, cfg.Validate()
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, c.App.ErrWriter)
	if err != nil {
		return err
	}

	st := stage.New(logger)
	if cfg.StageFile != "" {
		if st, err = stage.Load(cfg.StageFile, logger); err != nil {
			return err
		}
	}

	term := panel.NewTerminal(c.App.Writer)
	displays := []tactile.Display{term}
	if cfg.ROS.Enabled {
		node, err := ros.NewNode(cfg.ROS.NodeName, c.Args().Slice(), ros.WithLogger(logger))
		if err != nil {
			return errors.Wrap(err, "start ROS node")
		}
		defer node.Shutdown()
		topics := panel.NewTopics(node, cfg.ROS.TopicPrefix, logger)
		defer topics.Close()
		displays = append(displays, topics)
	}

	h := &host{
		manager: tactile.NewManager(st, st, panel.Multi(displays...),
			tactile.WithLogger(logger), tactile.WithMetersPerUnit(cfg.MetersPerUnit)),
		stage:      st,
		term:       term,
		logger:     logger.WithField("module", "host"),
		sensorFile: cfg.SensorFile,
		period:     time.Duration(float64(time.Second) / cfg.PhysicsHz),
	}

	var changes <-chan fsnotify.Event
	var watchErrs <-chan error
	if cfg.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "watch sensor table")
		}
		defer watcher.Close()
		// Editors replace files on save, so watch the directory.
		if err := watcher.Add(filepath.Dir(cfg.SensorFile)); err != nil {
			return errors.Wrap(err, "watch sensor table")
		}
		changes, watchErrs = watcher.Events, watcher.Errors
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	h.importSensors()
	return h.loop(clock.New(), stop, changes, watchErrs)
}

func newLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	logger := ros.NewLogger()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	return logger, nil
}

// host drives the manager: all stage, manager and panel calls happen on
// the goroutine running loop.
type host struct {
	manager    *tactile.Manager
	stage      *stage.Stage
	term       *panel.Terminal
	logger     *logrus.Entry
	sensorFile string
	period     time.Duration
	lastFlush  time.Time
}

func (h *host) importSensors() {
	n, err := h.manager.ImportAndApply(h.sensorFile)
	if err != nil {
		h.logger.WithError(err).Warn("sensor import failed")
	} else {
		h.logger.Infof("imported %d sensors from %s", n, h.sensorFile)
	}
	h.flush()
}

func (h *host) removeSensors() {
	n, err := h.manager.RemoveAll()
	if err != nil {
		h.logger.WithError(err).Warn("sensor removal incomplete")
	}
	h.logger.Infof("removed %d sensors", n)
	h.flush()
}

func (h *host) tick(now time.Time, dt time.Duration) {
	h.stage.Step(dt)
	h.manager.Tick(dt)
	if now.Sub(h.lastFlush) >= refreshInterval {
		h.lastFlush = now
		h.flush()
	}
}

func (h *host) flush() {
	if err := h.term.Flush(); err != nil {
		h.logger.WithError(err).Error("could not draw readings")
	}
}

func (h *host) isSensorFile(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(ev.Name) == filepath.Clean(h.sensorFile)
}

// loop runs until stop fires, then removes every sensor.
func (h *host) loop(clk clock.Clock, stop <-chan os.Signal, changes <-chan fsnotify.Event, watchErrs <-chan error) error {
	ticker := clk.Ticker(h.period)
	defer ticker.Stop()
	last := clk.Now()

	for {
		select {
		case now := <-ticker.C:
			h.tick(now, now.Sub(last))
			last = now
		case ev, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if h.isSensorFile(ev) {
				h.logger.Infof("%s changed, re-importing", ev.Name)
				h.importSensors()
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			h.logger.WithError(err).Warn("file watcher error")
		case sig := <-stop:
			h.logger.Infof("received %v, removing sensors", sig)
			h.removeSensors()
			return nil
		}
	}
}
