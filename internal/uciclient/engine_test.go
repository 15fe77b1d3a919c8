package uciclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// fakeEngine answers the subset of commands the client sends.
// Modes: normal, nomove, chatty, mate, deaf (ignores quit), silent (prints nothing for d).
func fakeEngine(r io.Reader, w io.Writer, mode string) {
	var scanner = bufio.NewScanner(r)
	for scanner.Scan() {
		var fields = strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "position":
			// accepted silently
		case "d":
			if mode == "silent" {
				for i := 0; i < 20; i++ {
					fmt.Fprintln(w, "info string thinking")
				}
				continue
			}
			fmt.Fprintln(w, "")
			fmt.Fprintln(w, "info string board")
			fmt.Fprintln(w, startFEN)
		case "go":
			switch mode {
			case "nomove":
				fmt.Fprintln(w, "info depth 1 score cp 0")
				fmt.Fprintln(w, "bestmove (none)")
			case "chatty":
				for i := 0; i < 200; i++ {
					fmt.Fprintf(w, "info depth %v score cp %v\n", i, i)
				}
			case "mate":
				fmt.Fprintln(w, "info depth 1 score cp 35 pv e2e4")
				fmt.Fprintln(w, "info depth 2 score mate 3 pv e2e4")
				fmt.Fprintln(w, "bestmove e2e4 ponder e7e5")
			default:
				fmt.Fprintln(w, "info depth 1 score cp 12 nodes 20 pv d2d4")
				fmt.Fprintln(w, "info depth 2 score cp -7 nodes 80 pv e2e4")
				fmt.Fprintln(w, "info depth 3 score cp abc")
				fmt.Fprintln(w, "bestmove e2e4")
			}
		case "quit":
			if mode == "deaf" {
				time.Sleep(time.Minute)
			}
			return
		}
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)
	var args = os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	fakeEngine(os.Stdin, os.Stdout, args[1])
}

func startHelper(t *testing.T, mode string) *Engine {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	var e, err = Start(context.Background(), os.Args[0], "-test.run=TestHelperProcess", "--", mode)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func pipeEngine(t *testing.T, mode string) *Engine {
	var engineOut, clientIn = io.Pipe()
	var clientOut, engineIn = io.Pipe()
	go func() {
		fakeEngine(engineOut, engineIn, mode)
		engineIn.Close()
		engineOut.Close()
	}()
	var e = NewEngine(clientOut, clientIn)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestProcessSearch(t *testing.T) {
	var e = startHelper(t, "normal")

	require.NoError(t, e.SetPosition(nil))
	var fen, err = e.BoardFEN()
	require.NoError(t, err)
	assert.Equal(t, startFEN, fen)

	result, err := e.Search(Limits{Depth: 7})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", result.BestMove)
	assert.Equal(t, -7, result.Score)
	assert.True(t, result.HasScore)

	require.NoError(t, e.SetPosition([]string{"e2e4", "e7e5"}))
	fen, err = e.BoardFEN()
	require.NoError(t, err)
	assert.Equal(t, startFEN, fen)

	var start = time.Now()
	assert.NoError(t, e.Quit())
	assert.Less(t, time.Since(start), QuitGrace)
}

func TestProcessQuitKills(t *testing.T) {
	var e = startHelper(t, "deaf")
	var start = time.Now()
	e.Quit()
	var elapsed = time.Since(start)
	assert.GreaterOrEqual(t, elapsed, QuitGrace)
	assert.Less(t, elapsed, 10*QuitGrace)
}

func TestStartMissingBinary(t *testing.T) {
	var _, err = Start(context.Background(), filepath.Join(t.TempDir(), "no-such-engine"))
	assert.Error(t, err)
}

func TestNoMove(t *testing.T) {
	var e = pipeEngine(t, "nomove")
	var _, err = e.Search(Limits{Depth: 1})
	assert.True(t, errors.Is(err, ErrNoMove))
}

func TestSearchReadBudget(t *testing.T) {
	var e = pipeEngine(t, "chatty")
	var result, err = e.Search(Limits{MoveTime: 100 * time.Millisecond})
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, DefaultSearchReadBudget, result.Lines)
}

func TestFenReadBudget(t *testing.T) {
	var e = pipeEngine(t, "silent")
	var _, err = e.BoardFEN()
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestMateScoreIgnored(t *testing.T) {
	var e = pipeEngine(t, "mate")
	var result, err = e.Search(Limits{Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", result.BestMove)
	assert.Equal(t, 35, result.Score)
}

func TestClosedStream(t *testing.T) {
	var e = pipeEngine(t, "normal")
	require.NoError(t, e.send("quit"))
	var _, err = e.BoardFEN()
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestLineTimeout(t *testing.T) {
	var r, _ = io.Pipe()
	var _, w = io.Pipe()
	var e = NewEngine(r, w)
	defer e.Close()
	e.LineTimeout = 20 * time.Millisecond
	var _, err = e.readLine()
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestEmptyLimits(t *testing.T) {
	var e = pipeEngine(t, "normal")
	var _, err = e.Search(Limits{})
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestParseLines(t *testing.T) {
	var score, ok = parseScoreCP("info depth 9 seldepth 12 score cp -153 nodes 1 pv a2a3")
	assert.True(t, ok)
	assert.Equal(t, -153, score)
	_, ok = parseScoreCP("info depth 9 score mate -2")
	assert.False(t, ok)

	move, found, err := parseBestMove("bestmove g1f3 ponder g8f6")
	assert.True(t, found)
	assert.NoError(t, err)
	assert.Equal(t, "g1f3", move)
	_, found, err = parseBestMove("bestmove")
	assert.True(t, found)
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestDiscover(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "engine")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	found, err := Discover([]string{filepath.Join(dir, "missing"), dir, path})
	require.NoError(t, err)
	assert.Equal(t, path, found)

	_, err = Discover([]string{filepath.Join(dir, "missing")})
	assert.Equal(t, ErrEngineNotFound, err)
}
