// Package policy provides optional declarative rules deciding which commands
// a terminal session may run, for example to block package removal or to ask
// a human before every command.
package policy
