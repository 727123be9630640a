package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"quiet":   LogLevelQuiet,
		"normal":  LogLevelNormal,
		"verbose": LogLevelVerbose,
		"debug":   LogLevelDebug,
		"":        LogLevelNormal,
		"loud":    LogLevelNormal,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestConsoleLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(LogLevelNormal, &buf, false)

	c.Infof("info %d", 1)
	c.Verbosef("hidden")
	c.Debugf("hidden too")
	c.Warningf("warned")
	c.Errorf("failed")

	out := buf.String()
	assert.Contains(t, out, "info 1")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "⚠ Warning: warned")
	assert.Contains(t, out, "✗ Error: failed")
}

func TestConsoleQuietStillWarns(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(LogLevelQuiet, &buf, false)

	c.Header("run")
	c.Step("launching")
	c.Successf("done")
	c.Warningf("slow")

	assert.Equal(t, "⚠ Warning: slow\n", buf.String())
}

func TestConsolePrefix(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(LogLevelDebug, &buf, false).WithPrefix("Player1")

	c.Debugf("x")

	assert.Equal(t, "[DEBUG] [Player1] x\n", buf.String())
}

func TestConsoleColor(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(LogLevelNormal, &buf, true).Successf("ok")

	assert.True(t, strings.HasPrefix(buf.String(), "\033[1;32m"))
	assert.Contains(t, buf.String(), "\033[0m")
}

func TestConsoleConcurrentLinesIntact(t *testing.T) {
	var buf bytes.Buffer
	root := NewConsole(LogLevelNormal, &buf, false)

	var wg sync.WaitGroup
	for _, name := range []string{"Host", "Player1", "Player2"} {
		wg.Add(1)
		go func(c *Console) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.Infof("line %d", i)
			}
		}(root.WithPrefix(name))
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 150)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "["), l)
	}
}

func TestConsoleMirror(t *testing.T) {
	file := openTemp(t, "run")

	c := NewConsole(LogLevelQuiet, &bytes.Buffer{}, false)
	c.Mirror(file)
	c.WithPrefix("Host").Verbosef("checked play button")

	assert.Contains(t, readLog(t, file), "[Host] [DEBUG] checked play button")
}
