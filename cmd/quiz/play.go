package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/donok1/wedding-quiz/internal/client"
	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const helpText = `commands:
  join CODE        join or create a room
  role ROLE        primaryA, primaryB, admin or guest
  name NAME        register as a guest
  yes | no         answer the current question
  next             next question (admin)
  restart          reset the room (admin)
  status           show the room again
  pause | resume   stop or restart syncing
  leave            leave the room
  quit
`

// pollingStore hides the remote subscription so the session polls.
type pollingStore struct {
	store.Store
}

func play(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	remote := client.NewRemote(cfg.server)
	quiz, err := remote.Questions(ctx)
	if err != nil {
		return fmt.Errorf("load questions from %s: %w", cfg.server, err)
	}
	log.Debug().Str("client", remote.ID()).Int("questions", len(quiz)).Msg("connected to room service")

	var st store.Store = remote
	if cfg.poll {
		st = pollingStore{Store: remote}
	}
	p := &printer{out: out}
	session := client.NewSession(st, quiz, cfg.sessionConfig(), client.OnRefresh(p.view))
	defer session.Leave()

	for _, line := range startup(cfg) {
		execute(ctx, session, p, line)
	}
	p.print(helpText)
	return loop(ctx, session, p, in)
}

// startup turns the --room, --role and --name flags into commands.
func startup(cfg *Config) []string {
	var lines []string
	if cfg.room == "" {
		return nil
	}
	lines = append(lines, "join "+cfg.room)
	if cfg.role != "" {
		lines = append(lines, "role "+cfg.role)
	}
	if cfg.name != "" {
		lines = append(lines, "name "+cfg.name)
	}
	return lines
}

func loop(ctx context.Context, session *client.Session, p *printer, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := execute(ctx, session, p, line); quit {
				return nil
			}
		}
	}
}

// execute runs one command line and reports whether the user asked to quit.
func execute(ctx context.Context, session *client.Session, p *printer, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(command) {
	case "join":
		err = session.JoinRoom(ctx, arg)
	case "role":
		err = session.SelectRole(ctx, arg)
	case "name":
		_, err = session.RegisterGuestName(ctx, arg)
	case "yes", "y":
		err = session.SubmitAnswer(ctx, true)
	case "no", "n":
		err = session.SubmitAnswer(ctx, false)
	case "next":
		err = session.AdvanceQuestion(ctx)
	case "restart":
		err = session.Restart(ctx)
	case "status":
		p.force(session.View())
	case "pause":
		session.Pause()
		p.print("paused\n")
	case "resume":
		err = session.Resume(ctx)
	case "leave":
		session.Leave()
		p.force(session.View())
	case "help":
		p.print(helpText)
	case "quit", "exit":
		return true
	default:
		p.print(fmt.Sprintf("unknown command %q, type help\n", command))
	}
	if err != nil {
		p.print("! " + describe(err) + "\n")
	}
	return false
}

func describe(err error) string {
	var validation *room.ValidationError
	var duplicate *room.DuplicateNameError
	switch {
	case errors.As(err, &validation):
		return err.Error()
	case errors.As(err, &duplicate):
		return fmt.Sprintf("%q is already taken, pick another name", duplicate.Name)
	case errors.Is(err, room.ErrNotAllowed):
		return "your role cannot do that"
	case errors.Is(err, room.ErrGameCompleted):
		return "the game is over"
	case errors.Is(err, client.ErrNoRoom):
		return "join a room first"
	case store.IsConnectivity(err):
		return "room service unreachable, retrying on the next tick"
	}
	return err.Error()
}

// printer writes views as they change. Refreshes arrive from the sync
// timers, so writes are serialized.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (p *printer) view(v room.View) {
	text := renderView(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.last {
		return
	}
	p.last = text
	_, _ = io.WriteString(p.out, text)
}

func (p *printer) force(v room.View) {
	text := renderView(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = text
	_, _ = io.WriteString(p.out, text)
}

func (p *printer) print(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, text)
}
