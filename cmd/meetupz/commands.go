package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meetupz/meetupz/client"
	"github.com/meetupz/meetupz/internal/config"
)

const dateLayout = "2006-01-02 15:04"

// --------------------------------------------------------------------
// Session commands
// --------------------------------------------------------------------

func newLoginCmd(cfg func() *config.Config) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			u, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(u))
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignupCmd(cfg func() *config.Config) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			u, err := a.client.Signup(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run `meetupz login` to start a session.\n", displayName(u))
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session user",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			u, ok := a.client.Session().User()
			if !a.client.Session().Authenticated() || !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", displayName(u), u.Email)
			return nil
		}),
	}
}

// --------------------------------------------------------------------
// Browsing
// --------------------------------------------------------------------

// loadDirectory loads the collection, falling back to the last snapshot
// when the backend is unreachable.
func loadDirectory(ctx context.Context, a *app) (*client.Directory, error) {
	dir := a.client.NewDirectory()
	err := dir.Load(ctx)
	if err == nil {
		return dir, nil
	}
	if restored, rerr := dir.RestoreSnapshot(ctx); rerr == nil && restored {
		log.Warn().Err(err).Msg("backend unreachable, showing cached meetups")
		return dir, nil
	}
	_ = dir.Close()
	return nil, err
}

func newListCmd(cfg func() *config.Config) *cobra.Command {
	var category, search, location, date string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetups matching the filters",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			day, err := client.ParseDay(date)
			if err != nil {
				return err
			}
			dir, err := loadDirectory(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer dir.Close()

			crit := client.Criteria{Category: category, Query: search, Location: location, Date: day}
			var ms []client.Meetup
			if all {
				ms = dir.Filter(crit)
			} else {
				ms = dir.Upcoming(crit)
			}
			out := cmd.OutOrStdout()
			if len(ms) == 0 {
				fmt.Fprintln(out, "No meetups found")
				return nil
			}
			membership := a.client.NewMembership(dir)
			for _, m := range ms {
				printMeetupLine(out, a.client, membership, m)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&category, "category", client.AllCategories, "Category, or All")
	cmd.Flags().StringVar(&search, "search", "", "Text to find in title, description or location")
	cmd.Flags().StringVar(&location, "location", "", "Exact location")
	cmd.Flags().StringVar(&date, "date", "", "Day as YYYY-MM-DD")
	cmd.Flags().BoolVar(&all, "all", false, "Include meetups that are over")
	return cmd
}

func newLocationsCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List the locations meetups take place in",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			dir, err := loadDirectory(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer dir.Close()
			for _, l := range dir.Locations() {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		}),
	}
}

func newShowCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meetup-id>",
		Short: "Show one meetup and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, args []string) error {
			d, err := a.client.OpenDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer d.Close()
			m := d.Meetup()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", m.Title)
			fmt.Fprintf(out, "  When:         %s\n", formatDate(a.client, m))
			fmt.Fprintf(out, "  Where:        %s\n", m.Location)
			fmt.Fprintf(out, "  Host:         %s\n", m.Host)
			fmt.Fprintf(out, "  Categories:   %s\n", client.CategoryLabel(m))
			fmt.Fprintf(out, "  Participants: %s\n", d.ParticipantsText())
			if m.Description != "" {
				fmt.Fprintf(out, "\n%s\n", m.Description)
			}
			fmt.Fprintf(out, "\n%s\n", d.ReviewCountText())
			printReviews(out, d.Reviews())
			return nil
		}),
	}
}

// --------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------

func newCreateCmd(cfg func() *config.Config) *cobra.Command {
	var draft client.MeetupDraft
	var date string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Host a new meetup",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			day, err := client.ParseDay(date)
			if err != nil {
				return err
			}
			draft.Day = day
			m, err := a.client.CreateMeetup(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Meetup created: %s - %s\n", m.ID, m.Title)
			return nil
		}),
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&draft.Location, "location", "", "Location (required)")
	cmd.Flags().StringVar(&date, "date", "", "Day as YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&draft.Time, "time", "", "Start time as HH:MM (required)")
	cmd.Flags().StringSliceVar(&draft.Categories, "category", nil, "Category; repeat or comma-separate for several ("+strings.Join(client.DefaultCategories, ", ")+")")
	cmd.Flags().IntVar(&draft.MaxAttendees, "max", 10, fmt.Sprintf("Maximum attendees (%d-%d)", client.MinAttendees, client.MaxAttendees))
	cmd.Flags().StringVar(&draft.Info, "info", "", "Description (required)")
	return cmd
}

func newDeleteCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <meetup-id>",
		Short: "Delete a meetup",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.client.DeleteMeetup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Meetup deleted: %s\n", args[0])
			return nil
		}),
	}
}

func newJoinCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "join <meetup-id>",
		Short: "Register for a meetup",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, args []string) error {
			return changeMembership(cmd, a, args[0], true)
		}),
	}
}

func newLeaveCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <meetup-id>",
		Short: "Cancel a registration",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, args []string) error {
			return changeMembership(cmd, a, args[0], false)
		}),
	}
}

func changeMembership(cmd *cobra.Command, a *app, meetupID string, join bool) error {
	ctx := cmd.Context()
	dir := a.client.NewDirectory()
	defer dir.Close()
	if err := dir.Load(ctx); err != nil {
		// The capacity check needs the collection; the backend still
		// enforces it, so carry on without.
		log.Warn().Err(err).Msg("could not load meetups")
	}
	ms := a.client.NewMembership(dir)
	verb := "Registered for"
	var err error
	if join {
		err = ms.Register(ctx, meetupID)
	} else {
		verb = "Left"
		err = ms.Unregister(ctx, meetupID)
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if m, ok := dir.Get(meetupID); ok {
		fmt.Fprintf(out, "%s %s (%s)\n", verb, m.Title, client.ParticipantsText(m))
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", verb, meetupID)
	return nil
}

// --------------------------------------------------------------------
// Reviews and profile
// --------------------------------------------------------------------

func newReviewCmd(cfg func() *config.Config) *cobra.Command {
	var rating int
	var comment string
	cmd := &cobra.Command{
		Use:   "review <meetup-id>",
		Short: "Rate a meetup you attended",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, args []string) error {
			agg := a.client.NewReviews()
			defer agg.Close()
			r, err := agg.Submit(cmd.Context(), args[0], rating, comment)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Review saved: %d/%d for %s\n", r.Rating, client.MaxRating, r.MeetupID)
			return nil
		}),
	}
	cmd.Flags().IntVar(&rating, "rating", 0, fmt.Sprintf("Rating %d-%d (required)", client.MinRating, client.MaxRating))
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func newReviewsCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reviews <meetup-id>...",
		Short: "Show the reviews of one or more meetups",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, args []string) error {
			agg := a.client.NewReviews()
			defer agg.Close()
			all := agg.FetchForMany(cmd.Context(), args)
			out := cmd.OutOrStdout()
			for _, id := range args {
				rs := agg.For(id)
				fmt.Fprintf(out, "%s: %s", id, client.CountText(len(rs)))
				if len(rs) > 0 {
					fmt.Fprintf(out, ", average %.1f", client.AverageRating(rs))
				}
				fmt.Fprintln(out)
				printReviews(out, rs)
			}
			log.Debug().Int("reviews", len(all)).Msg("reviews fetched")
			return nil
		}),
	}
}

func newProfileCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the meetups you host, joined and attended",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.client.Session().RequireToken("view your profile"); err != nil {
				return err
			}
			v := a.client.NewProfileView()
			defer v.Close()
			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			p := v.Profile()
			out := cmd.OutOrStdout()
			section := func(title string, ms []client.Meetup, withReviews bool) {
				fmt.Fprintf(out, "%s (%d)\n", title, len(ms))
				for _, m := range ms {
					fmt.Fprintf(out, "  %s  %s  %s", m.ID, formatDate(a.client, m), m.Title)
					if withReviews {
						fmt.Fprintf(out, "  %s", client.CountText(len(v.Reviews().For(m.ID))))
					}
					fmt.Fprintln(out)
				}
			}
			section("Created", p.Created, false)
			section("Joined", p.Joined, false)
			section("Past", p.Past, true)
			return nil
		}),
	}
}

func newWatchCmd(cfg func() *config.Config) *cobra.Command {
	var interval time.Duration
	var iterations int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the meetup list fresh and print every change",
		RunE: withApp(cfg, func(cmd *cobra.Command, a *app, _ []string) error {
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			dir := a.client.NewDirectory()
			defer dir.Close()
			cancel := dir.OnChange(func(ms []client.Meetup) {
				fmt.Fprintf(out, "[%s] %d meetups\n", a.client.Now().In(a.client.Location()).Format(dateLayout), len(ms))
			})
			defer cancel()
			if err := dir.Load(ctx); err != nil {
				log.Warn().Err(err).Msg("initial load failed")
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for n := 0; iterations == 0 || n < iterations; n++ {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
				if iterations > 0 && n == iterations-1 {
					// Closing the directory cancels a debounced refresh, so the
					// last one loads directly.
					if err := a.client.Bus().Flush(ctx); err != nil {
						return err
					}
					if err := dir.Load(ctx); err != nil {
						log.Warn().Err(err).Msg("final refresh failed")
					}
					continue
				}
				a.client.Bus().Publish(client.Event{Kind: client.RefreshMeetups})
			}
			return nil
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Time between refreshes")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after this many refreshes (0 runs until interrupted)")
	return cmd
}

// --------------------------------------------------------------------
// Output helpers
// --------------------------------------------------------------------

func displayName(u client.User) string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	return u.Email
}

func formatDate(c *client.Client, m client.Meetup) string {
	if m.Date.IsZero() {
		return "date not set"
	}
	return m.Date.In(c.Location()).Format(dateLayout)
}

func printMeetupLine(out io.Writer, c *client.Client, ms *client.Membership, m client.Meetup) {
	mark := ""
	if ms.Registered(m) {
		mark = "  (registered)"
	} else if client.IsFull(m) {
		mark = "  (full)"
	}
	fmt.Fprintf(out, "%s  %s  %s  @ %s  [%s]  %s%s\n",
		m.ID, formatDate(c, m), m.Title, m.Location, client.CategoryLabel(m), client.ParticipantsText(m), mark)
}

func printReviews(out io.Writer, rs []client.Review) {
	for _, r := range rs {
		who := displayName(r.Author)
		if who == "" {
			who = "anonymous"
		}
		fmt.Fprintf(out, "  %d/%d  %s", r.Rating, client.MaxRating, who)
		if r.Comment != "" {
			fmt.Fprintf(out, ": %s", r.Comment)
		}
		fmt.Fprintln(out)
	}
}
