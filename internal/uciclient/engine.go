package uciclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrProtocol = errors.New("engine protocol error")
	ErrTimeout  = errors.New("engine read budget exhausted")
	ErrNoMove   = errors.New("engine has no move")
)

const (
	DefaultFenReadBudget    = 10
	DefaultSearchReadBudget = 150
	QuitGrace               = time.Second
)

type Limits struct {
	Depth    int
	MoveTime time.Duration
}

func (l Limits) command() (string, error) {
	if l.Depth > 0 {
		return "go depth " + strconv.Itoa(l.Depth), nil
	}
	if l.MoveTime > 0 {
		return "go movetime " + strconv.FormatInt(l.MoveTime.Milliseconds(), 10), nil
	}
	return "", fmt.Errorf("%w: empty search limits", ErrProtocol)
}

type SearchResult struct {
	BestMove string
	// Score is the last centipawn score reported before bestmove, 0 if none was seen.
	Score    int
	HasScore bool
	Lines    int
}

// Engine talks to one engine process over its stdin/stdout, one request at a time.
// Reads are budgeted in lines, not in wall-clock time.
type Engine struct {
	FenReadBudget    int
	SearchReadBudget int
	// LineTimeout bounds the wait for a single line. Zero waits forever.
	LineTimeout time.Duration

	stdin     io.WriteCloser
	stdout    io.Closer
	lines     chan string
	done      chan struct{}
	closeOnce sync.Once

	cmd    *exec.Cmd
	exited chan struct{}
}

// NewEngine wraps an already connected engine stream.
func NewEngine(r io.Reader, w io.WriteCloser) *Engine {
	var e = &Engine{
		FenReadBudget:    DefaultFenReadBudget,
		SearchReadBudget: DefaultSearchReadBudget,
		stdin:            w,
		lines:            make(chan string, 64),
		done:             make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		e.stdout = c
	}
	go e.readLines(r)
	return e
}

// Start launches the engine binary. The process is killed when ctx is done.
func Start(ctx context.Context, path string, args ...string) (*Engine, error) {
	var cmd = exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	// own pipe so that Wait does not close stdout under the reader
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	err = cmd.Start()
	pw.Close()
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("start engine %v: %w", path, err)
	}
	var e = NewEngine(pr, stdin)
	e.cmd = cmd
	e.exited = make(chan struct{})
	go func() {
		cmd.Wait()
		close(e.exited)
	}()
	return e, nil
}

func (e *Engine) readLines(r io.Reader) {
	defer close(e.lines)
	var scanner = bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		select {
		case e.lines <- scanner.Text():
		case <-e.done:
			return
		}
	}
}

func (e *Engine) send(cmd string) error {
	var _, err = io.WriteString(e.stdin, cmd+"\n")
	if err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrProtocol, cmd, err)
	}
	return nil
}

func (e *Engine) readLine() (string, error) {
	var timeout <-chan time.Time
	if e.LineTimeout > 0 {
		var timer = time.NewTimer(e.LineTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case line, ok := <-e.lines:
		if !ok {
			return "", fmt.Errorf("%w: engine output closed", ErrProtocol)
		}
		return line, nil
	case <-timeout:
		return "", fmt.Errorf("%w: no output for %v", ErrTimeout, e.LineTimeout)
	}
}

// SetPosition sets the position reached from the initial position by moves.
func (e *Engine) SetPosition(moves []string) error {
	if len(moves) == 0 {
		return e.send("position startpos")
	}
	return e.send("position startpos moves " + strings.Join(moves, " "))
}

// BoardFEN asks the engine to print the current position with the non-standard "d" command.
// The first non-empty line that is not an info line is the FEN.
func (e *Engine) BoardFEN() (string, error) {
	var err = e.send("d")
	if err != nil {
		return "", err
	}
	for i := 0; i < e.FenReadBudget; i++ {
		line, err := e.readLine()
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "info") {
			continue
		}
		return line, nil
	}
	return "", fmt.Errorf("%w: no position after %v lines", ErrTimeout, e.FenReadBudget)
}

// Search runs a search and waits for bestmove.
// Only "score cp" updates the score; mate scores are ignored.
func (e *Engine) Search(limits Limits) (SearchResult, error) {
	var result SearchResult
	cmd, err := limits.command()
	if err != nil {
		return result, err
	}
	err = e.send(cmd)
	if err != nil {
		return result, err
	}
	for result.Lines < e.SearchReadBudget {
		line, err := e.readLine()
		if err != nil {
			return result, err
		}
		result.Lines++
		if score, ok := parseScoreCP(line); ok {
			result.Score = score
			result.HasScore = true
		}
		if move, ok, err := parseBestMove(line); ok {
			if err != nil {
				return result, err
			}
			if move == "(none)" || move == "0000" {
				return result, ErrNoMove
			}
			result.BestMove = move
			return result, nil
		}
	}
	return result, fmt.Errorf("%w: no bestmove after %v lines", ErrTimeout, e.SearchReadBudget)
}

func parseScoreCP(line string) (int, bool) {
	var i = strings.Index(line, "score cp")
	if i < 0 {
		return 0, false
	}
	var fields = strings.Fields(line[i+len("score cp"):])
	if len(fields) == 0 {
		return 0, false
	}
	var score, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return score, true
}

func parseBestMove(line string) (string, bool, error) {
	var i = strings.Index(line, "bestmove")
	if i < 0 {
		return "", false, nil
	}
	var fields = strings.Fields(line[i:])
	if len(fields) < 2 {
		return "", true, fmt.Errorf("%w: malformed %q", ErrProtocol, line)
	}
	return fields[1], true, nil
}

// Quit asks the engine to exit and kills it after QuitGrace.
func (e *Engine) Quit() error {
	var err = e.send("quit")
	if e.cmd != nil {
		var timer = time.NewTimer(QuitGrace)
		defer timer.Stop()
		select {
		case <-e.exited:
		case <-timer.C:
			e.cmd.Process.Kill()
			<-e.exited
		}
	}
	e.Close()
	return err
}

// Close releases the engine without waiting for a graceful exit.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.stdin.Close()
		if e.cmd != nil {
			select {
			case <-e.exited:
			default:
				e.cmd.Process.Kill()
				<-e.exited
			}
		}
		if e.stdout != nil {
			e.stdout.Close()
		}
	})
	return nil
}
