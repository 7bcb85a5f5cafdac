// Package cli implements the seminar-watch command line interface.
//
// Subcommands cover the full workflow: registering monitored pages,
// triggering crawls (one page or all), listing tracked meetings with
// upcoming/all views and filters, inspecting a meeting's change history,
// exporting calendar entries, and running the daily-crawl daemon.
package cli
