// Package notifier provides notification interfaces and implementations for
// announcing newly discovered or rescheduled meetings.
//
// The notifier package supports posting announcements to Twitter and a
// dry-run mode for previewing. It handles OAuth authentication, rate
// limiting between posts, and message formatting.
package notifier
