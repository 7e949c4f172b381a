// Package alerts delivers outlier notifications to Slack, Teams or generic
// HTTP webhooks.
//
// A Notifier turns an evaluation with at least one outlier into a single
// Alert and posts it to every configured target. Repeated evaluations of the
// same day with the same outlier set are not re-sent, so `perfwatch serve`
// can re-evaluate on every file change without repeating itself.
package alerts
