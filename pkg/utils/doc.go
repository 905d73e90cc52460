// Package utils provides rough token estimation for prompts and replies.
// Estimates are for log lines only; providers report the real counts when
// they have them.
package utils
