// Package rules implements persistent filter rules and the engine that
// applies them to mailboxes in bulk.
//
// A rule joins conditions conjunctively: a message matches only when every
// condition holds. Condition and action kinds are closed enumerations;
// anything outside them is rejected at creation time and the store is left
// untouched.
//
// The engine reduces many (message, rule) matches into few protocol calls:
// matched ids accumulate per action kind (moves additionally per target
// folder), each id at most once per group, and each group dispatches as one
// bulk mutation.
package rules
