package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"parking-service/internal/model"
	"parking-service/internal/reconcile"
)

var (
	sessionsNaive bool
	sessionsPlate string
	sessionsFrom  string
	sessionsTo    string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Reconcile once and print the sessions as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := buildFilter(sessionsPlate, sessionsFrom, sessionsTo)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}

		sessions, err := reconcileOnce(cmd.Context(), a, sessionsNaive)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), a.sessions.Search(sessions, filter))
	},
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <exit-session-id>",
	Short: "Finalize an unverified exit session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		principal := model.Principal{UserID: uuid.Nil, Role: model.UserRoleAdmin}
		result, err := a.sessions.FinalizeExit(cmd.Context(), principal, args[0])
		if err != nil && !errors.Is(err, model.ErrFinalizeRejected) {
			return err
		}
		if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
			return werr
		}
		if err != nil {
			return fmt.Errorf("finalize %s: %s", args[0], result.Message)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		sessions, err := reconcileOnce(cmd.Context(), a, false)
		if err != nil {
			return err
		}
		stats, err := a.sessions.Stats(cmd.Context(), sessions)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsNaive, "naive", false, "pair raw gate events instead of verified sessions")
	sessionsCmd.Flags().StringVar(&sessionsPlate, "plate", "", "filter by plate substring, case insensitive")
	sessionsCmd.Flags().StringVar(&sessionsFrom, "from", "", "entry on or after (YYYY-MM-DD or timestamp)")
	sessionsCmd.Flags().StringVar(&sessionsTo, "to", "", "entry on or before (YYYY-MM-DD or timestamp)")
}

func reconcileOnce(ctx context.Context, a *app, naive bool) ([]model.ParkingSession, error) {
	if naive {
		return a.sessions.GetGroupedSessions(ctx)
	}
	outcome := a.sessions.GetEnhancedGroupedSessions(ctx)
	if outcome.Cause != nil {
		a.log.Warn().Err(outcome.Cause).Str("path", string(outcome.Path)).Msg("verified sessions unavailable")
	}
	return outcome.Sessions, nil
}

func buildFilter(plate, from, to string) (reconcile.Filter, error) {
	filter := reconcile.Filter{Plate: plate}
	if from != "" {
		t, err := parseDate(from)
		if err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
		filter.DateFrom = &t
	}
	if to != "" {
		t, err := parseDate(to)
		if err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		filter.DateTo = &t
	}
	if filter.DateFrom != nil && filter.DateTo != nil && reconcile.StartOfDay(*filter.DateTo).Before(reconcile.StartOfDay(*filter.DateFrom)) {
		return filter, errors.New("--to is before --from")
	}
	return filter, nil
}

// parseDate accepts a calendar date in local time or any gate timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return t, nil
	}
	return model.ParseTimestamp(raw)
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
