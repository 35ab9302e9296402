// Package trigger turns a resolved recurrence expression into "fire now"
// events.
//
// The scheduler depends only on the Trigger interface; the production
// implementation (Cron) wraps robfig/cron with a single entry per trigger.
// Tests substitute fakes through the Factory hook.
//
// # Schedule formats
//
// ParseSchedule accepts several syntaxes and normalizes them all to a cron
// spec robfig/cron understands:
//
//   - Cron expressions: 5-field (min hour dom mon dow) or 6-field with
//     optional seconds. Example: "55 * * * *" or "0 */5 * * * *".
//   - Cron descriptors: "@hourly", "@daily", "@every 55m".
//   - Interval durations: Go duration strings like "55m" or "2h30m".
//   - Interval HH:MM: a compact duration format where "00:50" means every 50
//     minutes and "02:30" means every 2 hours 30 minutes.
//
// To force interpretation, callers may prefix the string with "cron:",
// "interval:", or "every:".
package trigger
