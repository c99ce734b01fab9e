// Package console is the line based player surface: one command per line,
// served over any io.ReadWriter a listener hands it.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pixil98/go-manhunt/internal/game"
)

// Session is what the console drives.
type Session interface {
	Room() string
	Snapshot() (game.UiState, bool)
	MarkCaught(ctx context.Context) error
	GrabPowerUp(ctx context.Context) error
	UsePowerUp(ctx context.Context) (game.PowerUpType, error)
	ForcePowerUp(t game.PowerUpType) error
	SetLocation(loc game.Location)
	Quit() error
}

type Console struct {
	session  Session
	commands map[string]*command
	now      func() time.Time
}

func New(s Session) *Console {
	return &Console{
		session:  s,
		commands: buildCommands(),
		now:      time.Now,
	}
}

// Exec runs one command line's worth of input. done is set when the
// connection should be closed afterwards.
func (c *Console) Exec(ctx context.Context, w io.Writer, name string, args ...string) (done bool, err error) {
	cmd, ok := c.commands[strings.ToLower(name)]
	if !ok {
		return false, NewUserError(fmt.Sprintf("Unknown command %q. Type help for a list.", name))
	}
	if len(args) < cmd.minArgs {
		return false, NewUserError("Usage: " + cmd.usage)
	}
	return cmd.run(ctx, c, w, args)
}

// Play reads commands from conn until the player leaves, the connection
// drops or ctx ends.
func (c *Console) Play(ctx context.Context, conn io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			select {
			case inputChan <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputErrChan <- scanner.Err()
		close(inputChan)
	}()

	if err := writeLine(conn, "Welcome. Type help for a list of commands."); err != nil {
		return err
	}
	if err := c.prompt(conn); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-inputChan:
			if !ok {
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line == "" {
				if err := c.prompt(conn); err != nil {
					return err
				}
				continue
			}

			parts := strings.Fields(line)
			done, err := c.Exec(ctx, conn, parts[0], parts[1:]...)
			if err != nil {
				var userErr *UserError
				if !errors.As(err, &userErr) {
					return fmt.Errorf("running %s: %w", parts[0], err)
				}
				if err := writeLine(conn, userErr.Message); err != nil {
					return err
				}
			}
			if done {
				return writeLine(conn, "Goodbye!")
			}

			if err := c.prompt(conn); err != nil {
				return err
			}
		}
	}
}

func (c *Console) prompt(w io.Writer) error {
	prompt := "[lobby] > "
	if ui, ok := c.session.Snapshot(); ok {
		switch {
		case ui.Ended != nil:
			prompt = "[over] > "
		case ui.IsSeeker():
			prompt = fmt.Sprintf("[seeker %d/%d] > ", ui.Seekers(), len(ui.Caught))
		default:
			prompt = fmt.Sprintf("[hider %d/%d] > ", ui.Seekers(), len(ui.Caught))
		}
	}
	_, err := io.WriteString(w, prompt)
	return err
}

func writeLine(w io.Writer, msg string) error {
	_, err := io.WriteString(w, msg+"\n\n")
	return err
}
