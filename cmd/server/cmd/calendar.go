package cmd

import (
	"fmt"
	"time"

	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type calendarOptions struct {
	event    calendar.Event
	timeZone string
	ics      bool
}

func newCalendarCmd(root *rootOptions) *cobra.Command {
	opts := &calendarOptions{}
	cmd := &cobra.Command{
		Use:   "calendar [event-id]",
		Short: "Print the add-to-calendar link of an event",
		Long: `Print the Google Calendar quick-add link (or, with --ics, the iCalendar
document) of a stored event, or of an ad-hoc event described by flags.

Event times are read in CALENDAR_TIMEZONE unless --tz is given.

Examples:
  # Link for a stored event
  server calendar e_opening_keynote

  # Ad-hoc event
  server calendar --title "Opening Keynote" --date 2025-12-04 \
    --start "8:50 AM" --end "9:50 AM" --venue "Hall A"

  # iCalendar document for a stored event
  server calendar e_opening_keynote --ics > keynote.ics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			loc := cfg.Calendar.Location
			if opts.timeZone != "" {
				if loc, err = time.LoadLocation(opts.timeZone); err != nil {
					return fmt.Errorf("--tz: %w", err)
				}
			}
			// stdout carries the link; logs go to stderr.
			logger := config.NewLoggerTo(cfg.Logging, cmd.ErrOrStderr())

			ev := opts.event
			if len(args) == 1 {
				stored, err := lookupEvent(cmd, cfg, logger, args[0])
				if err != nil {
					return err
				}
				ev = stored
			} else if ev.Date == "" || ev.StartTime == "" {
				return fmt.Errorf("pass an event id, or --date and --start")
			}

			builder := calendar.NewBuilder(loc, logger)
			if opts.ics {
				doc, err := builder.ICS(ev, "", time.Now())
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}

			link, err := builder.Build(ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.event.Title, "title", "", "event title")
	f.StringVar(&opts.event.Description, "description", "", "event description")
	f.StringVar(&opts.event.Host, "host", "", "event host")
	f.StringVar(&opts.event.Date, "date", "", "event date (YYYY-MM-DD)")
	f.StringVar(&opts.event.StartTime, "start", "", `start time, e.g. "8:50 AM"`)
	f.StringVar(&opts.event.EndTime, "end", "", "end time (default: one hour after start)")
	f.StringVar(&opts.event.VenueName, "venue", "", "venue name")
	f.StringVar(&opts.event.LocationAddress, "address", "", "street address")
	f.StringVar(&opts.event.RegistrationURL, "registration-url", "", "registration link")
	f.StringVar(&opts.event.Link, "link", "", "event page link")
	f.StringVar(&opts.timeZone, "tz", "", "IANA time zone of the event times (default: CALENDAR_TIMEZONE)")
	f.BoolVar(&opts.ics, "ics", false, "print an iCalendar document instead of a link")
	return cmd
}

func lookupEvent(cmd *cobra.Command, cfg config.Config, logger zerolog.Logger, id string) (calendar.Event, error) {
	dir, err := openDirectory(cmd.Context(), cfg, logger)
	if err != nil {
		return calendar.Event{}, err
	}
	defer dir.Close()

	stored, err := dir.events.Get(cmd.Context(), id)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("event %s: %w", id, err)
	}
	return stored.CalendarEvent(), nil
}
