package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestDefault(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	c.Assert(cfg.Capture.Source, qt.Equals, "pin")
	c.Assert(cfg.Capture.Mode, qt.Equals, "latch")
	c.Assert(cfg.Capture.DeadTime, qt.Equals, 15*time.Millisecond)
	c.Assert(cfg.Capture.BufferSize, qt.Equals, 128)
	c.Assert(cfg.Capture.InProgressCount, qt.IsFalse)
	c.Assert(cfg.Capture.IdleTimeout(), qt.Equals, 16384*time.Microsecond)
	c.Assert(cfg.Validate(), qt.HasLen, 0)
}

func TestIdleTimeoutSaturates(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	cfg.Capture.Tick = time.Hour
	cfg.Capture.CounterBits = 32
	c.Assert(cfg.Validate(), qt.HasLen, 0)
	c.Assert(cfg.Capture.IdleTimeout(), qt.Equals, time.Duration(math.MaxInt64))
}

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)

	v, err := New("")
	c.Assert(err, qt.IsNil)

	cfg, err := Load(v)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, Default())
}

func TestLoadFile(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(c.TempDir(), "irframe.yaml")
	err := os.WriteFile(path, []byte(`
capture:
  mode: buffer
  dead_time: 20ms
  buffer_size: 64
  in_progress_count: true
logging:
  level: debug
  format: json
`), 0o644)
	c.Assert(err, qt.IsNil)

	v, err := New(path)
	c.Assert(err, qt.IsNil)
	cfg, err := Load(v)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Capture.Mode, qt.Equals, "buffer")
	c.Assert(cfg.Capture.Source, qt.Equals, "pin")
	c.Assert(cfg.Capture.DeadTime, qt.Equals, 20*time.Millisecond)
	c.Assert(cfg.Capture.BufferSize, qt.Equals, 64)
	c.Assert(cfg.Capture.InProgressCount, qt.IsTrue)
	c.Assert(cfg.Logging.Level, qt.Equals, "debug")
	c.Assert(cfg.Logging.Format, qt.Equals, "json")
}

func TestLoadEnv(t *testing.T) {
	c := qt.New(t)
	c.Setenv("IRFRAME_CAPTURE_SOURCE", "timer")
	c.Setenv("IRFRAME_CAPTURE_TICK", "500ns")

	v, err := New("")
	c.Assert(err, qt.IsNil)
	cfg, err := Load(v)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Capture.Source, qt.Equals, "timer")
	c.Assert(cfg.Capture.Tick, qt.Equals, 500*time.Nanosecond)
}

func TestLoadMissingFile(t *testing.T) {
	c := qt.New(t)

	_, err := New(filepath.Join(c.TempDir(), "nope.yaml"))
	c.Assert(err, qt.ErrorMatches, `config: could not read .*nope.yaml.*`)
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	cfg := Default()
	cfg.Capture.Mode = "ring"
	cfg.Capture.DeadTime = 0
	cfg.Capture.CounterBits = 40
	cfg.Logging.Format = "xml"

	errs := cfg.Validate()
	c.Assert(errs, qt.HasLen, 4)
	for _, err := range errs {
		c.Assert(errors.Is(err, ErrInvalid), qt.IsTrue)
	}
	c.Assert(errs[0], qt.ErrorMatches, `capture.mode=ring: invalid value`)

	v, err := New("")
	c.Assert(err, qt.IsNil)
	v.Set("capture.buffer_size", -1)
	_, err = Load(v)
	c.Assert(errors.Is(err, ErrInvalid), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `config: capture.buffer_size=-1: invalid value`)
}
