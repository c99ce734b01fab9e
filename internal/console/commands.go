package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/pixil98/go-manhunt/internal/display"
	"github.com/pixil98/go-manhunt/internal/driver"
	"github.com/pixil98/go-manhunt/internal/game"
)

type command struct {
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, c *Console, w io.Writer, args []string) (bool, error)
}

func buildCommands() map[string]*command {
	return map[string]*command{
		"help":   {usage: "help", help: "list commands", run: runHelp},
		"status": {usage: "status", help: "show the session as you see it", run: runStatus},
		"caught": {usage: "caught", help: "report that you have been caught", run: runCaught},
		"grab":   {usage: "grab", help: "pick up the power-up on the map", run: runGrab},
		"use":    {usage: "use", help: "use the power-up you hold", run: runUse},
		"force":  {usage: "force <type>", help: "hold a power-up of the given type", minArgs: 1, run: runForce},
		"loc":    {usage: "loc <lat> <long>", help: "set where you are", minArgs: 2, run: runLoc},
		"code":   {usage: "code", help: "show the room code", run: runCode},
		"quit":   {usage: "quit", help: "leave the session", run: runQuit},
		"exit":   {usage: "exit", help: "close this connection, staying in the session", run: runExit},
	}
}

// sessionError turns the errors a player can cause into something to show
// them. Anything else is passed through.
func sessionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, driver.ErrNotStarted):
		return NewUserError("The session has not started yet.")
	case errors.Is(err, game.ErrNoPowerUpOnMap):
		return NewUserError("There is no power-up on the map.")
	case errors.Is(err, game.ErrNoPowerUpHeld):
		return NewUserError("You are not holding a power-up.")
	case errors.Is(err, game.ErrSessionEnded):
		return NewUserError("The session is over.")
	default:
		return err
	}
}

func runHelp(_ context.Context, c *Console, w io.Writer, _ []string) (bool, error) {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var sb strings.Builder
	for _, name := range names {
		cmd := c.commands[name]
		fmt.Fprintf(&sb, "%-18s %s\n", cmd.usage, cmd.help)
	}
	return false, writeLine(w, "Commands:\n"+display.Block(strings.TrimRight(sb.String(), "\n"), 2))
}

type revealView struct {
	Who  string
	Lat  float64
	Long float64
	Ago  time.Duration
}

type statusView struct {
	Room           string
	Role           string
	Seekers        int
	Participants   int
	Released       bool
	Held           string
	PowerUp        *game.Location
	Reveals        []revealView
	Ended          bool
	PendingReports int
}

func (c *Console) status() (statusView, error) {
	ui, ok := c.session.Snapshot()
	if !ok {
		return statusView{}, driver.ErrNotStarted
	}

	view := statusView{
		Room:           c.session.Room(),
		Role:           "hider",
		Seekers:        ui.Seekers(),
		Participants:   len(ui.Caught),
		Released:       ui.SeekersReleased != nil,
		PowerUp:        ui.AvailablePowerUp,
		Ended:          ui.Ended != nil,
		PendingReports: ui.PendingReports,
	}
	if ui.IsSeeker() {
		view.Role = "seeker"
	}
	if ui.HeldPowerUp != nil {
		view.Held = ui.HeldPowerUp.String()
	}

	now := c.now()
	for id, r := range ui.Reveals {
		view.Reveals = append(view.Reveals, revealView{
			Who:  id.String(),
			Lat:  r.Location.Lat,
			Long: r.Location.Long,
			Ago:  now.Sub(r.At).Truncate(time.Second),
		})
	}
	slices.SortFunc(view.Reveals, func(a, b revealView) int { return strings.Compare(a.Who, b.Who) })

	return view, nil
}

func runStatus(_ context.Context, c *Console, w io.Writer, _ []string) (bool, error) {
	view, err := c.status()
	if err != nil {
		return false, sessionError(err)
	}

	out, err := ExpandTemplate(statusTemplate, view)
	if err != nil {
		return false, err
	}
	return false, writeLine(w, display.Wrap(strings.TrimRight(out, "\n")))
}

func runCaught(ctx context.Context, c *Console, w io.Writer, _ []string) (bool, error) {
	if ui, ok := c.session.Snapshot(); ok && ui.IsSeeker() {
		return false, NewUserError("You are already a seeker.")
	}
	if err := c.session.MarkCaught(ctx); err != nil {
		return false, sessionError(err)
	}
	slog.InfoContext(ctx, "marked caught")
	return false, writeLine(w, "You are now a seeker.")
}

func runGrab(ctx context.Context, c *Console, w io.Writer, _ []string) (bool, error) {
	if err := c.session.GrabPowerUp(ctx); err != nil {
		return false, sessionError(err)
	}

	msg := "You picked up a power-up."
	if ui, ok := c.session.Snapshot(); ok && ui.HeldPowerUp != nil {
		msg = fmt.Sprintf("You picked up %s.", ui.HeldPowerUp)
	}
	return false, writeLine(w, msg)
}

func runUse(ctx context.Context, c *Console, w io.Writer, _ []string) (bool, error) {
	t, err := c.session.UsePowerUp(ctx)
	if err != nil {
		return false, sessionError(err)
	}
	if t == game.RevealSeekerAsMe {
		return false, writeLine(w, "Your next reveal will show a seeker in your place.")
	}
	return false, writeLine(w, display.Capitalize(fmt.Sprintf("%s used.", t)))
}

func runForce(_ context.Context, c *Console, w io.Writer, args []string) (bool, error) {
	var t game.PowerUpType
	if err := t.UnmarshalText([]byte(strings.ToLower(args[0]))); err != nil {
		names := make([]string, 0, len(game.AllPowerUpTypes))
		for _, p := range game.AllPowerUpTypes {
			names = append(names, p.String())
		}
		return false, NewUserError(fmt.Sprintf("Unknown power-up %q. Choose one of: %s.", args[0], strings.Join(names, ", ")))
	}

	if err := c.session.ForcePowerUp(t); err != nil {
		return false, sessionError(err)
	}
	return false, writeLine(w, fmt.Sprintf("You now hold %s.", t))
}

func runLoc(_ context.Context, c *Console, w io.Writer, args []string) (bool, error) {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return false, NewUserError("Latitude must be a number between -90 and 90.")
	}
	long, err := strconv.ParseFloat(args[1], 64)
	if err != nil || long < -180 || long > 180 {
		return false, NewUserError("Longitude must be a number between -180 and 180.")
	}

	c.session.SetLocation(game.Location{Lat: lat, Long: long})
	return false, writeLine(w, fmt.Sprintf("Location set to %.5f, %.5f.", lat, long))
}

func runCode(_ context.Context, c *Console, w io.Writer, _ []string) (bool, error) {
	room := c.session.Room()
	if room == "" {
		return false, NewUserError("No room has been joined yet.")
	}

	q, err := qrcode.New(room, qrcode.Medium)
	if err != nil {
		return false, fmt.Errorf("encoding room code: %w", err)
	}
	return false, writeLine(w, fmt.Sprintf("Room code: %s\n%s", room, q.ToSmallString(false)))
}

func runQuit(ctx context.Context, c *Console, _ io.Writer, _ []string) (bool, error) {
	err := c.session.Quit()
	if err != nil && !errors.Is(err, driver.ErrNotStarted) {
		return false, err
	}
	slog.InfoContext(ctx, "left session")
	return true, nil
}

func runExit(context.Context, *Console, io.Writer, []string) (bool, error) {
	return true, nil
}
