package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/onboarding"
	"github.com/briefpulse/briefpulse/internal/client/verify"
)

// Start begins the landing flow: subscribe a fresh email or request a magic
// link for a known one.
func (a *App) Start(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: start <email>")
	}
	if err := a.landing.Submit(ctx, args[0]); err != nil {
		printlnFn(api.UserMessage(err))
		return nil
	}
	printlnFn("Now at:", a.nav.Current())
	return nil
}

// Verify consumes a magic-link token, as if the user opened the link from
// their inbox.
func (a *App) Verify(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: verify <token>")
	}
	status := a.verify.Start(ctx, args[0])
	a.printVerifyOutcome(status)
	return nil
}

func (a *App) RetryVerify(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: retry <token>")
	}
	if !a.netwatch.Online() {
		printlnFn("You appear to be offline. Reconnect and try again.")
		return nil
	}
	status := a.verify.Retry(ctx, args[0])
	a.printVerifyOutcome(status)
	return nil
}

func (a *App) printVerifyOutcome(status verify.Status) {
	switch status {
	case verify.StatusSuccess:
		printlnFn("Email verified. Now at:", a.nav.Current())
	case verify.StatusNetworkError:
		_, msg := a.verify.Status()
		printlnFn(msg)
		printlnFn("Type 'retry <token>' when you are back online.")
	case verify.StatusError:
		_, msg := a.verify.Status()
		printlnFn(msg)
	case verify.StatusVerifying:
		printlnFn("A verification attempt is already in progress.")
	}
}

// Onboard runs the wizard interactively, one prompt per step.
func (a *App) Onboard(ctx context.Context) error {
	step, skipped := a.onboard.Begin(ctx)
	if skipped {
		printlnFn("You are all set. Now at:", a.nav.Current())
		return nil
	}

	for step < onboarding.StepSuccess {
		var partial auth.Draft
		switch step {
		case onboarding.StepWelcome:
			name, err := GetSimpleText(a.reader, "What should we call you?", os.Stdout)
			if err != nil {
				return err
			}
			partial.Name = name
		case onboarding.StepPreferences:
			goals, err := GetList(a.reader, "Your goals, comma-separated (sleep, activity, recovery)", os.Stdout)
			if err != nil {
				return err
			}
			tz, err := GetSimpleText(a.reader, "Your timezone (e.g. Europe/Riga)", os.Stdout)
			if err != nil {
				return err
			}
			partial.Goals = goals
			partial.Timezone = tz
		case onboarding.StepConnect:
			choice, err := GetSimpleText(a.reader, "Connect a device? (garmin/fitbit/skip)", os.Stdout)
			if err != nil {
				return err
			}
			if choice != "" && choice != "skip" {
				target, err := a.onboard.Connect(ctx, api.Provider(choice))
				if err != nil {
					printlnFn(err.Error())
					continue
				}
				printlnFn("Open this URL to authorize, then run 'callback connected=" + choice + "':")
				printlnFn(" ", target)
				return nil
			}
		}

		next, err := a.onboard.Advance(ctx, partial)
		if err != nil {
			printlnFn(api.UserMessage(err))
			return nil
		}
		step = next
	}

	waitSettle()
	printlnFn("Now at:", a.nav.Current())
	return nil
}

// Callback simulates the OAuth provider redirect, e.g.
// "callback connected=garmin" or "callback error=access_denied&provider=fitbit".
func (a *App) Callback(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: callback <query>, e.g. callback connected=garmin")
	}
	values, err := url.ParseQuery(args[0])
	if err != nil {
		return fmt.Errorf("bad callback query: %w", err)
	}
	a.callback.Handle(ctx, onboarding.CallbackResult{
		Connected: values.Get("connected"),
		Provider:  values.Get("provider"),
		Error:     values.Get("error"),
	})
	printlnFn("Now at:", a.nav.Current())
	return nil
}

func (a *App) Status(ctx context.Context) error {
	state := a.recon.Current()
	printlnFn("Signed in:  ", strconv.FormatBool(state.Authed))
	if state.UserEmail != "" {
		printlnFn("Email:      ", state.UserEmail)
	}
	printlnFn("Online:     ", strconv.FormatBool(a.netwatch.Online()))
	printlnFn("Location:   ", a.nav.Current())
	if state.Err != "" {
		printlnFn("Last error: ", state.Err)
	}
	if d := a.drafts.Get(ctx); d.HasProfile() || d.Device != "" {
		printlnFn("Draft:      ", fmt.Sprintf("name=%q goals=%v tz=%q device=%q",
			d.Name, d.Goals, d.Timezone, d.Device))
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	state := a.recon.Refresh(ctx)
	if state.Err != "" {
		printlnFn(state.Err)
	}
	return nil
}

func (a *App) Connections(ctx context.Context, args []string) error {
	force := len(args) > 0 && args[0] == "force"
	conns, err := a.client.GetConnections(ctx, force)
	if err != nil {
		printlnFn(api.UserMessage(err))
		return nil
	}
	if len(conns) == 0 {
		printlnFn("No devices connected.")
		return nil
	}
	for _, c := range conns {
		line := fmt.Sprintf("%-8s %s", c.Provider, c.Status)
		if c.LastSync != "" {
			line += "  last sync " + c.LastSync
		}
		printlnFn(line)
	}
	return nil
}

func (a *App) Sync(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: sync <provider> [start end]")
	}
	var window *api.SyncWindow
	if len(args) >= 3 {
		window = &api.SyncWindow{StartDate: args[1], EndDate: args[2]}
	}
	res, err := a.client.TriggerSync(ctx, api.Provider(args[0]), window)
	if err != nil {
		printlnFn(api.UserMessage(err))
		return nil
	}
	printlnFn(res.Message)
	return nil
}

func (a *App) Backfill(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: backfill <provider> <days>")
	}
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad day count %q", args[1])
	}
	res, err := a.client.TriggerBackfill(ctx, api.Provider(args[0]), days)
	if err != nil {
		printlnFn(api.UserMessage(err))
		return nil
	}
	printlnFn(res.Message)
	return nil
}

func (a *App) Disconnect(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: disconnect <provider>")
	}
	if err := a.client.DisconnectDevice(ctx, api.Provider(args[0])); err != nil {
		printlnFn(api.UserMessage(err))
		return nil
	}
	printlnFn("Disconnected", args[0])
	a.recon.Refresh(ctx)
	return nil
}

func (a *App) Summary(ctx context.Context, args []string) error {
	provider := ""
	days := 7
	if len(args) > 0 {
		provider = args[0]
	}
	if len(args) > 1 {
		if d, err := strconv.Atoi(args[1]); err == nil {
			days = d
		}
	}
	s, err := a.client.GetSummary(ctx, provider, days)
	if err != nil {
		printlnFn(api.UserMessage(err))
		return nil
	}
	printlnFn("Period:    ", s.Period)
	printlnFn("Activities:", fmt.Sprintf("%d (%.0f kcal)", s.Activities.Count, s.Activities.TotalCalories))
	printlnFn("Sleep:     ", fmt.Sprintf("%d nights, avg %.1fh", s.Sleep.Count, s.Sleep.AvgDuration))
	printlnFn("Steps/day: ", fmt.Sprintf("%.0f", s.Dailies.AvgSteps))
	return nil
}

func (a *App) SignOut(ctx context.Context) error {
	a.recon.SignOut(ctx)
	printlnFn("Signed out.")
	return nil
}
