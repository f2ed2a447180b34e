// Package output renders catalog results for the command line, either as
// aligned human-readable tables or as indented JSON.
package output
