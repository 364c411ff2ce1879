package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

// assertLogMatches checks the level, the caller's file, the message and the structured fields of
// the next line in `actual`. The timestamp and line number are only checked for shape.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])
	test.That(t, actualParts[2], test.ShouldEqual, expectedParts[2])

	actualFilename, _, found := strings.Cut(actualParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, _ := strings.Cut(expectedParts[3], ":")
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)

	test.That(t, actualParts[4], test.ShouldEqual, expectedParts[4])
	if len(actualParts) == 5 {
		return
	}

	var actualMap, expectedMap map[string]any
	test.That(t, json.Unmarshal([]byte(actualParts[5]), &actualMap), test.ShouldBeNil)
	test.That(t, json.Unmarshal([]byte(expectedParts[5]), &expectedMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func newBufferedLogger(name string, level Level) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return newImpl(name, level, true, NewWriterAppender(buf)), buf
}

func TestConsoleOutput(t *testing.T) {
	logger, buf := newBufferedLogger("bus", DEBUG)

	logger.Info("start ", 1)
	assertLogMatches(t, buf, "2023-10-30T09:12:09.459Z\tINFO\tbus\tlogging/impl_test.go:52\tstart 1")

	logger.Debugw("retry", "attempt", 2)
	assertLogMatches(t, buf, `2023-10-30T09:12:09.459Z	DEBUG	bus	logging/impl_test.go:55	retry	{"attempt":2}`)

	logger.Warnw("stop masked a failure", "addr", 0x51, "status", "SlaveNack")
	assertLogMatches(t, buf,
		`2023-10-30T09:12:09.459Z	WARN	bus	logging/impl_test.go:58	stop masked a failure	{"addr":81,"status":"SlaveNack"}`)

	logger.Errorw("unpaired", "key")
	output, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	test.That(t, output, test.ShouldContainSubstring, "unpaired log key")
}

func TestLevels(t *testing.T) {
	logger, buf := newBufferedLogger("", WARN)
	logger.Debugw("hidden")
	logger.Info("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.CDebugw(context.Background(), "hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	logger.CDebugw(EnableDebugMode(context.Background(), ""), "shown")
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown")
	buf.Reset()

	logger.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)
	logger.Warn("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	logger.Error("shown")
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown")
}

func TestLevelFromString(t *testing.T) {
	for inp, expected := range map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"":        INFO,
		"warning": WARN,
		"Error":   ERROR,
	} {
		level, err := LevelFromString(inp)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferedLogger("softi2c", DEBUG)
	sub := logger.Sublogger("rtc8564")
	sub.Info("hello")
	test.That(t, buf.String(), test.ShouldContainSubstring, "\tsofti2c.rtc8564\t")

	// Levels are copied, not shared.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
}

func TestObservedLogs(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Debugw("nack", "addr", 0x3e)
	test.That(t, observed.FilterMessage("nack").Len(), test.ShouldEqual, 1)
	test.That(t, observed.All()[0].ContextMap()["addr"], test.ShouldEqual, int64(0x3e))
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Level: "debug"}
	test.That(t, cfg.Validate("log"), test.ShouldBeNil)

	cfg.Level = "verbose"
	err := cfg.Validate("log")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "log.level")

	cfg = Config{MaxSizeMB: -1}
	test.That(t, cfg.Validate("log"), test.ShouldNotBeNil)
}
