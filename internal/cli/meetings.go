package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/pfrederiksen/seminar-watch/internal/calendar"
	"github.com/pfrederiksen/seminar-watch/internal/filter"
	"github.com/spf13/cobra"
)

func newMeetingsCmd() *cobra.Command {
	var (
		flagAll       bool
		flagLimit     int
		flagSort      string
		flagSpeakers  string
		flagLocations string
		flagModes     string
		flagFrom      string
		flagTo        string
	)

	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List tracked meetings (upcoming by default, --all for everything)",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			now := time.Now()
			meetings, err := st.ListMeetings(cmd.Context(), !flagAll, now, flagLimit)
			if err != nil {
				return err
			}

			f := filter.New()
			f.Speakers = filter.ParseList(flagSpeakers)
			f.Locations = filter.ParseList(flagLocations)
			f.Modes = filter.ParseList(flagModes)
			if f.DateFrom, err = filter.ParseDate(flagFrom); err != nil {
				return err
			}
			if f.DateTo, err = filter.ParseDate(flagTo); err != nil {
				return err
			}
			meetings = f.Apply(meetings, now)

			sortMeetings(meetings, SortOrder(flagSort))

			result := &MeetingList{
				ListedAt: now.UTC(),
				ShowAll:  flagAll,
				Count:    len(meetings),
				Meetings: meetings,
			}
			return WriteMeetings(os.Stdout, result, format, flagVerbose)
		},
	}

	cmd.Flags().BoolVar(&flagAll, "all", false, "Include past meetings and meetings without a parseable date")
	cmd.Flags().IntVar(&flagLimit, "limit", 200, "Maximum meetings to list")
	cmd.Flags().StringVar(&flagSort, "sort", "date", "Sort order: date, title, or speaker")
	cmd.Flags().StringVar(&flagSpeakers, "speaker", "", "Filter by speaker (comma-separated, substring match)")
	cmd.Flags().StringVar(&flagLocations, "location", "", "Filter by location (comma-separated, substring match)")
	cmd.Flags().StringVar(&flagModes, "mode", "", "Filter by mode: online, in-person, hybrid, unknown")
	cmd.Flags().StringVar(&flagFrom, "from", "", "Only meetings on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagTo, "to", "", "Only meetings on or before this date (YYYY-MM-DD)")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <meeting-id>",
		Short: "Show a meeting's change history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			m, err := st.MeetingByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snapshots, err := st.History(cmd.Context(), m.ID)
			if err != nil {
				return err
			}
			return WriteHistory(os.Stdout, m, snapshots, format)
		},
	}
}

func newExportICSCmd() *cobra.Command {
	var flagOut string

	cmd := &cobra.Command{
		Use:   "export-ics <meeting-id>",
		Short: "Export a meeting as an iCalendar (.ics) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			m, err := st.MeetingByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			ics := calendar.GenerateICS(m, time.Now())
			if flagOut == "" {
				fmt.Print(ics)
				return nil
			}
			if err := os.WriteFile(flagOut, []byte(ics), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", flagOut, err)
			}
			fmt.Printf("Wrote %s\n", flagOut)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagOut, "output", "o", "", "Output file (default stdout)")
	return cmd
}
