package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rx3lixir/laba_meet/internal/signaling"
)

var (
	primary = lipgloss.Color("#7D56F4")
	muted   = lipgloss.Color("#767676")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

var (
	statsAddr    string
	statsTimeout time.Duration
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live rooms and hub counters of a running server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), statsTimeout)
		defer cancel()

		stats, err := fetchStats(ctx, statsAddr)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "http://localhost:8080", "base url of the server")
	statsCmd.Flags().DurationVar(&statsTimeout, "timeout", 5*time.Second, "request timeout")
}

func fetchStats(ctx context.Context, addr string) (signaling.Stats, error) {
	var stats signaling.Stats

	url := strings.TrimRight(addr, "/") + "/api/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("server answered %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("failed to decode stats: %w", err)
	}
	return stats, nil
}

func renderStats(s signaling.Stats) string {
	m := s.Metrics

	counters := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primary)).
		Headers("Clients", "Sent", "Dropped", "Evicted", "Events", "Lookup failures", "Persist failures").
		Row(
			strconv.Itoa(m.ConnectedClients),
			strconv.FormatInt(m.MessagesSent, 10),
			strconv.FormatInt(m.MessagesDropped, 10),
			strconv.FormatInt(m.ClientsEvicted, 10),
			strconv.FormatInt(m.EventsHandled, 10),
			strconv.FormatInt(m.LookupFailures, 10),
			strconv.FormatInt(m.PersistFailures, 10),
		).
		StyleFunc(styleCell)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Hub"))
	b.WriteString("\n")
	b.WriteString(counters.Render())
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Rooms"))
	b.WriteString("\n")

	if len(s.Rooms) == 0 {
		b.WriteString(mutedStyle.Render("No live rooms"))
		return b.String()
	}

	rows := make([][]string, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		rows = append(rows, []string{
			r.ID,
			string(r.Type),
			fmt.Sprintf("%s (%s)", r.CreatorName, r.CreatorID),
			strconv.Itoa(r.ParticipantCount),
			strconv.Itoa(r.WaitingCount),
			strconv.Itoa(r.DeniedCount),
			r.CreatedAt.Local().Format(time.DateTime),
		})
	}

	rooms := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primary)).
		Headers("Room", "Type", "Creator", "In call", "Waiting", "Denied", "Created").
		Rows(rows...).
		StyleFunc(styleCell)

	b.WriteString(rooms.Render())
	return b.String()
}

func styleCell(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}
